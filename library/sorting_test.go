package library

import (
	"cmp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func titles(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestSortByTitle(t *testing.T) {
	in := []Book{{ISBN: 1, Title: "Zeta"}, {ISBN: 2, Title: "Alpha"}, {ISBN: 3, Title: "Mu"}}
	assert.Equal(t, []string{"Alpha", "Mu", "Zeta"}, titles(SortByTitle(in)))
	assert.Equal(t, []string{"Zeta", "Alpha", "Mu"}, titles(in), "input must not be reordered")
}

func TestSortByPublisher(t *testing.T) {
	in := []Book{{ISBN: 1, Publisher: "Zeta"}, {ISBN: 2, Publisher: "Alpha"}, {ISBN: 3, Publisher: "Mu"}}
	var got []string
	for _, b := range SortByPublisher(in) {
		got = append(got, b.Publisher)
	}
	assert.Equal(t, []string{"Alpha", "Mu", "Zeta"}, got)
	assert.Equal(t, []ISBN{2, 3, 1}, isbns(SortByPublisher(in)))
}

func TestSortByTitleIgnoresCase(t *testing.T) {
	in := []Book{{Title: "banana"}, {Title: "Apple"}, {Title: "cherry"}}
	assert.Equal(t, []string{"Apple", "banana", "cherry"}, titles(SortByTitle(in)))
}

func TestSortByCopiesDesc(t *testing.T) {
	in := []Book{{ISBN: 1, Copies: 3}, {ISBN: 2, Copies: 9}, {ISBN: 3, Copies: 1}}
	got := SortByCopiesDesc(in)
	assert.Equal(t, []int{9, 3, 1}, []int{got[0].Copies, got[1].Copies, got[2].Copies})
}

func TestSortByCopiesDescIsStable(t *testing.T) {
	in := []Book{{ISBN: 1, Copies: 2}, {ISBN: 2, Copies: 5}, {ISBN: 3, Copies: 2}, {ISBN: 4, Copies: 5}}
	assert.Equal(t, []ISBN{2, 4, 1, 3}, isbns(SortByCopiesDesc(in)))
}

func TestSortByPublisherIsStable(t *testing.T) {
	in := []Book{
		{ISBN: 1, Publisher: "Penguin"},
		{ISBN: 2, Publisher: "Apress"},
		{ISBN: 3, Publisher: "Penguin"},
		{ISBN: 4, Publisher: "Apress"},
	}
	assert.Equal(t, []ISBN{2, 4, 1, 3}, isbns(SortByPublisher(in)))
}

func TestSortByLanguageThenISBN(t *testing.T) {
	in := []Book{
		{ISBN: 9, Language: "French"},
		{ISBN: 3, Language: "English"},
		{ISBN: 7, Language: "French"},
		{ISBN: 1, Language: "English"},
	}
	assert.Equal(t, []ISBN{1, 3, 7, 9}, isbns(SortByLanguageThenISBN(in)))
}

func TestSortEmptyAndSingle(t *testing.T) {
	for _, key := range SortKeys {
		assert.Empty(t, key.Apply(nil), key)
		assert.Len(t, key.Apply([]Book{{ISBN: 1}}), 1, key)
	}
}

func TestSortKeyApplyUnknownKeepsOrder(t *testing.T) {
	in := []Book{{ISBN: 3}, {ISBN: 1}}
	assert.Equal(t, []ISBN{3, 1}, isbns(SortKey("nope").Apply(in)))
}

func TestSearchByTitle(t *testing.T) {
	books := []Book{{ISBN: 1, Title: "Dune"}, {ISBN: 2, Title: "Emma"}, {ISBN: 3, Title: "dune"}}
	assert.Equal(t, []ISBN{1, 3}, isbns(SearchByTitle(books, "DUNE")))
	assert.Empty(t, SearchByTitle(books, "Dun"))
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		points int
		want   Tier
	}{
		{0, TierC},
		{500, TierC},
		{501, TierB},
		{1000, TierB},
		{1001, TierA},
		{5000, TierA},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.points), "points=%d", tt.points)
	}
}

// Every algorithm agrees with the standard library on the resulting key
// order, and the stable ones agree on the full element order.
func TestSortsAgreeWithStdlib(t *testing.T) {
	less := func(a, b Book) bool { return a.Copies < b.Copies }
	compare := func(a, b Book) int { return cmp.Compare(a.Copies, b.Copies) }
	copies := func(bs []Book) []int {
		out := make([]int, len(bs))
		for i, b := range bs {
			out[i] = b.Copies
		}
		return out
	}

	rapid.Check(t, func(t *rapid.T) {
		vals := rapid.SliceOf(rapid.IntRange(0, 20)).Draw(t, "copies")
		in := make([]Book, len(vals))
		for i, v := range vals {
			in[i] = Book{ISBN: ISBN(i), Copies: v}
		}
		want := slices.Clone(in)
		slices.SortStableFunc(want, compare)

		stable := map[string][]Book{
			"exchange":  ExchangeSort(in, less),
			"insertion": InsertionSort(in, less),
			"merge":     MergeSort(in, less),
		}
		for name, got := range stable {
			if !slices.Equal(isbns(got), isbns(want)) {
				t.Fatalf("%s: got %v, want %v", name, isbns(got), isbns(want))
			}
		}
		if got := QuickSort(in, less); !slices.Equal(copies(got), copies(want)) {
			t.Fatalf("quick: got %v, want %v", copies(got), copies(want))
		}
	})
}

func TestQuickSortStrings(t *testing.T) {
	in := strings.Fields("pear fig apple kiwi fig")
	got := QuickSort(in, func(a, b string) bool { return a < b })
	assert.Equal(t, []string{"apple", "fig", "fig", "kiwi", "pear"}, got)
}
