// Package render draws a ranked link graph with Graphviz.
//
// Nodes are sized and shaded by their PageRank so the most linked-to pages
// stand out. [ToDOT] produces the DOT source; [RenderSVG] and [RenderPNG]
// lay it out with the embedded Graphviz engine from go-graphviz, so no
// external binary is needed.
//
//	dot := render.ToDOT(g, res.Ranks, render.Options{Top: 50})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Large crawls make unreadable pictures; [Options.Top] keeps only the
// highest ranked nodes and the edges between them.
package render
