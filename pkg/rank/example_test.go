package rank_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/index"
	"github.com/matzehuels/linkrank/pkg/matrix"
	"github.com/matzehuels/linkrank/pkg/rank"
)

func ExampleSolve() {
	idx := index.FromIDs([]string{"home", "about", "blog"})
	edges := []graph.Edge{
		{From: 0, To: 1}, {From: 0, To: 2},
		{From: 1, To: 0},
		{From: 2, To: 0},
	}

	m, err := matrix.Build(edges, idx.Len(), matrix.Options{})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	res, err := rank.Solve(context.Background(), m, rank.Options{})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	for _, e := range rank.Sort(res.Ranks, idx) {
		fmt.Printf("%-5s %.4f\n", e.ID, e.Score)
	}
	// Output:
	// home  0.4865
	// about 0.2568
	// blog  0.2568
}
