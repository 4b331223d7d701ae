package rank

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/matzehuels/linkrank/pkg/index"
)

// Entry is one row of a ranking.
type Entry struct {
	Index int     `json:"index" yaml:"index"`
	Score float64 `json:"pagerank" yaml:"pagerank"`
	ID    string  `json:"name" yaml:"name"`
}

// Sort returns one entry per rank, highest score first. Equal scores stay in
// index order. When idx is nil the identity is the decimal index.
func Sort(ranks []float64, idx *index.Map) []Entry {
	out := make([]Entry, len(ranks))
	for i, r := range ranks {
		e := Entry{Index: i, Score: r}
		if idx != nil {
			e.ID, _ = idx.ID(i)
		} else {
			e.ID = strconv.Itoa(i)
		}
		out[i] = e
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// Top returns the first k entries, or all of them when k <= 0 or k exceeds
// the length.
func Top(entries []Entry, k int) []Entry {
	if k <= 0 || k >= len(entries) {
		return entries
	}
	return entries[:k]
}
