package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/linkrank/pkg/render"
)

// DefaultRenderTop bounds drawings of large graphs.
const DefaultRenderTop = 100

// RenderGraph draws the report's graph with nodes sized by rank. Only the
// top nodes are drawn (DefaultRenderTop when top is 0, all when negative).
// It needs the runtime fields of a report returned by Execute.
func RenderGraph(ctx context.Context, rep *Report, f render.Format, top int) ([]byte, error) {
	if rep.GraphValue == nil || len(rep.Ranks) != rep.GraphValue.N() {
		return nil, fmt.Errorf("report %s has no graph to render", rep.ID)
	}
	switch {
	case top == 0:
		top = DefaultRenderTop
	case top < 0:
		top = 0
	}
	dot := render.ToDOT(rep.GraphValue, rep.Ranks, render.Options{Top: top, Scores: true})
	out, err := render.Render(ctx, dot, f)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", f, err)
	}
	return out, nil
}
