package rank

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/linkrank/pkg/graph"
)

// Reference computes PageRank directly from an edge list using the
// formulation with an explicit dangling term:
//
//	next[t] = d · Σ_{s→t} rank[s]·w(s,t) + d · dangling/N + (1-d)/N
//
// where w(s,t) is the share of s's out-edges that point at t and dangling is
// the rank held by nodes without out-edges. It builds no matrix and is
// intended for cross-checking [Solve] on small graphs.
func Reference(edges []graph.Edge, n int, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, ErrEmptyGraph
	}

	out := outLinks(edges, n)
	degree := make([]float64, n)
	for _, e := range edges {
		degree[e.From]++
	}

	N := float64(n)
	d := opts.Damping
	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / N
	}

	res := &Result{}
	for it := 1; it <= opts.MaxIterations; it++ {
		var dangling float64
		for s, r := range rank {
			if degree[s] == 0 {
				dangling += r
			}
		}

		next := make([]float64, n)
		for s, targets := range out {
			for _, l := range targets {
				next[l.to] += d * rank[s] * l.weight
			}
		}
		var delta float64
		for t := range next {
			next[t] += (1-d)/N + d*dangling/N
			delta += math.Abs(next[t] - rank[t])
		}
		rank = next

		res.Iterations, res.Delta = it, delta
		if delta < opts.Tolerance {
			res.Converged = true
			break
		}
	}

	res.Ranks = rank
	for s, r := range rank {
		if degree[s] == 0 {
			res.DanglingMass += r
		}
	}
	return res, nil
}

type link struct {
	to     int
	weight float64
}

// outLinks groups edges by source. Each source's targets are distinct,
// sorted by index and weighted by their share of its out-edges.
func outLinks(edges []graph.Edge, n int) [][]link {
	counts := make([]map[int]int, n)
	degree := make([]int, n)
	for _, e := range edges {
		if counts[e.From] == nil {
			counts[e.From] = make(map[int]int)
		}
		counts[e.From][e.To]++
		degree[e.From]++
	}

	out := make([][]link, n)
	for s, targets := range counts {
		if len(targets) == 0 {
			continue
		}
		ls := make([]link, 0, len(targets))
		for t, c := range targets {
			ls = append(ls, link{to: t, weight: float64(c) / float64(degree[s])})
		}
		slices.SortFunc(ls, func(a, b link) int { return cmp.Compare(a.to, b.to) })
		out[s] = ls
	}
	return out
}
