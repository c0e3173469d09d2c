package library

import "strings"

// Each named ordering is defined by its algorithm; the tie behaviour of that
// algorithm is part of the result. All routines return a new slice and leave
// the input untouched.

// ExchangeSort is a bubble sort. It only swaps on a strict less, so equal
// elements keep their relative order.
func ExchangeSort[T any](in []T, less func(a, b T) bool) []T {
	out := append([]T(nil), in...)
	for end := len(out) - 1; end > 0; end-- {
		swapped := false
		for i := 0; i < end; i++ {
			if less(out[i+1], out[i]) {
				out[i], out[i+1] = out[i+1], out[i]
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
	return out
}

// InsertionSort is stable: an element only moves past strictly greater ones.
func InsertionSort[T any](in []T, less func(a, b T) bool) []T {
	out := append([]T(nil), in...)
	for i := 1; i < len(out); i++ {
		cur := out[i]
		j := i - 1
		for j >= 0 && less(cur, out[j]) {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = cur
	}
	return out
}

// QuickSort partitions around the first element. Elements not greater than
// the pivot go left. This is not globally stable.
func QuickSort[T any](in []T, less func(a, b T) bool) []T {
	if len(in) <= 1 {
		return append([]T(nil), in...)
	}
	pivot := in[0]
	var lo, hi []T
	for _, x := range in[1:] {
		if less(pivot, x) {
			hi = append(hi, x)
		} else {
			lo = append(lo, x)
		}
	}
	out := make([]T, 0, len(in))
	out = append(out, QuickSort(lo, less)...)
	out = append(out, pivot)
	return append(out, QuickSort(hi, less)...)
}

// MergeSort is a stable top-down merge sort.
func MergeSort[T any](in []T, less func(a, b T) bool) []T {
	if len(in) <= 1 {
		return append([]T(nil), in...)
	}
	mid := len(in) / 2
	left := MergeSort(in[:mid], less)
	right := MergeSort(in[mid:], less)

	out := make([]T, 0, len(in))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if less(right[j], left[i]) {
			out = append(out, right[j])
			j++
		} else {
			out = append(out, left[i])
			i++
		}
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...)
}

// SortByPublisher orders by publisher ascending (exchange sort).
func SortByPublisher(books []Book) []Book {
	return ExchangeSort(books, func(a, b Book) bool { return a.Publisher < b.Publisher })
}

// SortByCopiesDesc orders by copy count, most copies first (insertion sort).
func SortByCopiesDesc(books []Book) []Book {
	return InsertionSort(books, func(a, b Book) bool { return a.Copies > b.Copies })
}

// SortByTitle orders by title ascending, ignoring case (quicksort).
func SortByTitle(books []Book) []Book {
	return QuickSort(books, func(a, b Book) bool {
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}

// SortByLanguageThenISBN orders by language, then ISBN (merge sort).
func SortByLanguageThenISBN(books []Book) []Book {
	return MergeSort(books, func(a, b Book) bool {
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.ISBN < b.ISBN
	})
}

// SortKey names one of the catalog orderings.
type SortKey string

const (
	SortByISBNKey         SortKey = "isbn"
	SortByPublisherKey    SortKey = "publisher"
	SortByCopiesKey       SortKey = "copies"
	SortByTitleKey        SortKey = "title"
	SortByLanguageISBNKey SortKey = "language"
)

// SortKeys lists the orderings accepted by Catalog.Sorted.
var SortKeys = []SortKey{SortByISBNKey, SortByPublisherKey, SortByCopiesKey, SortByTitleKey, SortByLanguageISBNKey}

// Apply sorts books by k. Unknown keys return the input order.
func (k SortKey) Apply(books []Book) []Book {
	switch k {
	case SortByPublisherKey:
		return SortByPublisher(books)
	case SortByCopiesKey:
		return SortByCopiesDesc(books)
	case SortByTitleKey:
		return SortByTitle(books)
	case SortByLanguageISBNKey:
		return SortByLanguageThenISBN(books)
	}
	return append([]Book(nil), books...)
}

// SearchByTitle returns every book whose title equals title, ignoring case.
func SearchByTitle(books []Book, title string) []Book {
	var out []Book
	for _, b := range books {
		if strings.EqualFold(b.Title, title) {
			out = append(out, b)
		}
	}
	return out
}

// TierFor derives the loyalty tier from a points balance.
func TierFor(points int) Tier {
	switch {
	case points >= 1001:
		return TierA
	case points >= 501:
		return TierB
	default:
		return TierC
	}
}
