// Package matrix builds the row-stochastic transition matrix of a link graph.
//
// Entry T[i][j] is the probability that a random surfer on page i follows a
// link to page j: the number of i→j edges divided by the out-degree of i.
// Rows without outgoing edges (dangling rows) are replaced by the uniform
// distribution 1/N, so every row of a built matrix sums to 1.
//
// Two storage layouts implement [Matrix]:
//
//   - [DenseMatrix]: N×N row-major array, suited to small graphs
//   - [CSRMatrix]: compressed sparse rows, with dangling rows kept implicit so a
//     mostly-dangling crawl frontier does not materialize N² entries
//
// [Build] picks a layout from [Kind]; [Auto] switches to sparse storage above
// [DenseThreshold] nodes.
//
// The solver only needs the transposed product x·T, exposed as
// [Matrix.MulVecT]. Both layouts compute it column by column, summing each
// output in ascending row order, so the result does not depend on the
// number of workers.
package matrix
