package render

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/rank"
)

// Options configures DOT generation.
type Options struct {
	// Top limits the drawing to the Top highest ranked nodes (0 = all).
	Top int
	// Scores appends the rank value to each label.
	Scores bool
	// MaxLabel truncates long identities (0 = 48 runes).
	MaxLabel int
}

const defaultMaxLabel = 48

// Format selects the Graphviz output.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
	DOT Format = "dot"
)

// ParseFormat accepts svg, png and dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case SVG, PNG, DOT:
		return f, nil
	}
	return "", fmt.Errorf("unknown render format %q (svg, png, dot)", s)
}

// FormatFromPath returns the extension of path without the dot, for
// ParseFormat.
func FormatFromPath(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// ToDOT converts a ranked graph to Graphviz DOT. ranks must be indexed like
// the graph's nodes. Multi-edges are drawn once with a penwidth that grows
// with their count.
func ToDOT(g *graph.Graph, ranks []float64, opts Options) string {
	maxLabel := opts.MaxLabel
	if maxLabel <= 0 {
		maxLabel = defaultMaxLabel
	}

	entries := rank.Top(rank.Sort(ranks, g.Index), opts.Top)
	keep := make(map[int]bool, len(entries))
	hi := 0.0
	for _, e := range entries {
		keep[e.Index] = true
		hi = math.Max(hi, e.Score)
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.6, color=\"#00000066\"];\n")
	buf.WriteString("\n")

	for _, e := range entries {
		fmt.Fprintf(&buf, "  n%d [%s];\n", e.Index, strings.Join(nodeAttrs(e, hi, maxLabel, opts.Scores), ", "))
	}

	buf.WriteString("\n")
	counts := make(map[graph.Edge]int)
	var order []graph.Edge
	for _, e := range g.Edges {
		if !keep[e.From] || !keep[e.To] {
			continue
		}
		if counts[e] == 0 {
			order = append(order, e)
		}
		counts[e]++
	}
	for _, e := range order {
		if c := counts[e]; c > 1 {
			fmt.Fprintf(&buf, "  n%d -> n%d [penwidth=%d];\n", e.From, e.To, min(c, 8))
		} else {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(e rank.Entry, hi float64, maxLabel int, scores bool) []string {
	rel := 0.0
	if hi > 0 {
		rel = e.Score / hi
	}
	label := truncate(e.ID, maxLabel)
	if scores {
		label += "\n" + strconv.FormatFloat(e.Score, 'f', 4, 64)
	}
	return []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("tooltip=%q", e.ID),
		fmt.Sprintf("width=%.2f", 0.4+1.6*math.Sqrt(rel)),
		fmt.Sprintf("fillcolor=%q", shade(rel)),
	}
}

// shade maps a relative rank in [0,1] from pale to saturated blue.
func shade(rel float64) string {
	lo := [3]float64{0xe8, 0xf1, 0xfb}
	hi := [3]float64{0x1f, 0x5f, 0xbf}
	var c [3]int
	for i := range c {
		c[i] = int(math.Round(lo[i] + (hi[i]-lo[i])*rel))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RenderSVG lays out a DOT graph and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderDOT(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out a DOT graph and returns PNG bytes.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

// Render dispatches on format. DOT returns the source unchanged.
func Render(ctx context.Context, dot string, f Format) ([]byte, error) {
	switch f {
	case SVG:
		return RenderSVG(ctx, dot)
	case PNG:
		return RenderPNG(ctx, dot)
	case DOT:
		return []byte(dot), nil
	}
	return nil, fmt.Errorf("unknown render format %q", f)
}

func renderDOT(ctx context.Context, dot string, f graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, f, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with
// its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
