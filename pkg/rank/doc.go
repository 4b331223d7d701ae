// Package rank computes PageRank scores from a transition matrix and orders
// them for output.
//
// [Solve] runs damped power iteration:
//
//	rank₀     = (1/N, …, 1/N)
//	rankₖ₊₁[j] = d · Σᵢ rankₖ[i]·T[i][j] + (1-d)/N
//
// and stops once the L1 distance between successive vectors falls below the
// tolerance. Mass held by dangling pages is spread by the uniform rows that
// [matrix.Build] writes for them; the iteration adds no separate dangling
// term, so the correction is applied exactly once. [Reference] implements
// the textbook formulation with an explicit dangling term over an edge list
// and is used to cross-check results.
//
// Running out of iterations is not an error: the last vector is returned
// with [Result.Converged] set to false.
//
// [Sort] turns a rank vector into [Entry] rows ordered by score, highest
// first, with ties kept in index order.
package rank
