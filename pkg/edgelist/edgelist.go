// Package edgelist reads link graphs from whitespace-separated edge files
// such as the SNAP web graph dumps.
//
// Each line holds two non-negative integers "u v" for an edge u → v. Lines
// starting with '#' and blank lines are ignored; extra columns are ignored.
// Node identities are the decimal node numbers, indexed in first-seen order.
//
// Lines that do not parse are skipped and counted in [Stats.Malformed].
// Edges touching a node number >= MaxNodes are skipped without counting
// toward MaxEdges, and reading stops as soon as MaxEdges edges have been
// accepted.
package edgelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/index"
)

// Defaults for the SNAP web-Google dump.
const (
	DefaultMaxNodes = 100000
	DefaultMaxEdges = 2552519
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Options bounds ingestion. Values <= 0 mean unlimited.
type Options struct {
	MaxNodes int
	MaxEdges int
	Logger   *log.Logger
}

// Stats counts what happened to each input line.
type Stats struct {
	Lines     int `json:"lines" yaml:"lines"`
	Comments  int `json:"comments" yaml:"comments"`
	Accepted  int `json:"accepted" yaml:"accepted"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Malformed int `json:"malformed" yaml:"malformed"`
	// Truncated reports that reading stopped at MaxEdges.
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// Read parses an edge list from r.
func Read(r io.Reader, opts Options) (*graph.Graph, *Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	idx := index.New(0)
	g := &graph.Graph{Index: idx}
	st := &Stats{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		st.Lines++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			st.Comments++
			continue
		}

		u, v, err := parseLine(line)
		if err != nil {
			st.Malformed++
			logger.Warn("skipping malformed edge line", "line", st.Lines, "err", err)
			continue
		}
		if opts.MaxNodes > 0 && (u >= opts.MaxNodes || v >= opts.MaxNodes) {
			st.Skipped++
			continue
		}

		from, _ := idx.Register(strconv.Itoa(u))
		to, _ := idx.Register(strconv.Itoa(v))
		g.Edges = append(g.Edges, graph.Edge{From: from, To: to})
		st.Accepted++

		if opts.MaxEdges > 0 && st.Accepted >= opts.MaxEdges {
			st.Truncated = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read line %d: %w", st.Lines+1, err)
	}

	idx.Freeze()
	logger.Debug("edge list read", "lines", st.Lines, "edges", st.Accepted, "nodes", idx.Len(),
		"skipped", st.Skipped, "malformed", st.Malformed)
	return g, st, nil
}

// Load reads the edge list file at path.
func Load(path string, opts Options) (*graph.Graph, *Stats, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "edge list %s", path)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, opts)
}

func parseLine(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, 0, errors.New(errors.ErrCodeMalformedEdgeLine, "want two node numbers, got %q", line)
	}
	u, err := parseNode(fields[0])
	if err != nil {
		return 0, 0, err
	}
	v, err := parseNode(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return u, v, nil
}

func parseNode(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeMalformedEdgeLine, "invalid node number %q", s)
	}
	return n, nil
}
