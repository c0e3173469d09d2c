package main

import (
	"context"
	"fmt"
	"strings"

	"library-catalog/internal/display"
	"library-catalog/library"
)

func printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-14s %-30s %-20s %-12s %-7s %-10s %-20s %-12s %s\n",
		"ISBN", "Title", "Publisher", "Language", "Copies", "Available", "Author", "Genre", "Points")
	fmt.Println(strings.Repeat("-", 140))
	for _, b := range books {
		availStr := "Yes"
		if !b.Available {
			availStr = "No"
		}
		fmt.Printf("%-14d %-30s %-20s %-12s %-7d %-10s %-20s %-12s %d\n",
			b.ISBN,
			display.Truncate(b.Title, 30),
			display.Truncate(b.Publisher, 20),
			display.Truncate(b.Language, 12),
			b.Copies,
			availStr,
			display.Truncate(b.Author, 20),
			display.Truncate(b.Genre, 12),
			b.Points)
	}
}

func handleListBooks(_ context.Context, _ *scanner, lib *library.Library, _ *library.User) {
	printBooks(lib.Catalog.List())
}

func handleSortBooks(_ context.Context, sc *scanner, lib *library.Library, user *library.User) {
	key, ok := sc.ask(fmt.Sprintf("Sort by (%s): ", sortKeyList()))
	if !ok {
		return
	}
	books, err := lib.Catalog.Sorted(*user, library.SortKey(strings.ToLower(key)))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printBooks(books)
}

func handleSearchTitle(_ context.Context, sc *scanner, lib *library.Library, _ *library.User) {
	title, ok := sc.ask("Title: ")
	if !ok {
		return
	}
	books := lib.Catalog.SearchTitle(title)
	if len(books) == 0 {
		fmt.Printf("No books found matching '%s'.\n", title)
		return
	}
	printBooks(books)
}

func handleAddBook(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	isbn, ok := askISBN(sc, "Enter ISBN: ")
	if !ok {
		return
	}
	if _, err := lib.Catalog.Get(isbn); err == nil {
		fmt.Printf("Error: a book with ISBN %d already exists\n", isbn)
		return
	}

	b := library.Book{ISBN: isbn}
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter book title: ", &b.Title},
		{"Enter publisher: ", &b.Publisher},
		{"Enter language: ", &b.Language},
		{"Enter author: ", &b.Author},
		{"Enter genre: ", &b.Genre},
	}
	for _, f := range fields {
		v, ok := sc.ask(f.prompt)
		if !ok {
			return
		}
		*f.dst = v
	}

	copies, ok := askQuantity(sc, "Enter number of copies: ")
	if !ok {
		return
	}
	points, ok := askQuantity(sc, "Enter reward points per copy: ")
	if !ok {
		return
	}
	if err := b.SetCopies(copies); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := b.SetPoints(points); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	err := lib.Catalog.Add(ctx, *user, b)
	report(err, fmt.Sprintf("Added book '%s' (ISBN %d)", b.Title, b.ISBN))
}

// askQuantity keeps asking until the input is a non-negative integer.
func askQuantity(sc *scanner, prompt string) (int, bool) {
	for {
		s, ok := sc.ask(prompt)
		if !ok {
			return 0, false
		}
		n, err := library.ParseQuantity(s)
		if err == nil && n != nil {
			return *n, true
		}
		fmt.Println("Invalid input. Please enter a non-negative whole number.")
	}
}

func handleUpdateBook(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	isbn, ok := askISBN(sc, "Enter ISBN of the book to update: ")
	if !ok {
		return
	}
	existing, err := lib.Catalog.Get(isbn)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Press Enter to keep the current value.")

	var ch library.BookChanges
	fields := []struct {
		label string
		cur   string
		dst   *string
	}{
		{"title", existing.Title, &ch.Title},
		{"publisher", existing.Publisher, &ch.Publisher},
		{"language", existing.Language, &ch.Language},
		{"author", existing.Author, &ch.Author},
		{"genre", existing.Genre, &ch.Genre},
	}
	for _, f := range fields {
		v, ok := sc.ask(fmt.Sprintf("New %s [%s]: ", f.label, f.cur))
		if !ok {
			return
		}
		*f.dst = v
	}

	for _, q := range []struct {
		label string
		cur   int
		dst   **int
	}{
		{"number of copies", existing.Copies, &ch.Copies},
		{"reward points", existing.Points, &ch.Points},
	} {
		for {
			s, ok := sc.ask(fmt.Sprintf("New %s [%d]: ", q.label, q.cur))
			if !ok {
				return
			}
			n, err := library.ParseQuantity(s)
			if err != nil {
				fmt.Println("Invalid input. Please enter a non-negative whole number.")
				continue
			}
			*q.dst = n
			break
		}
	}

	updated, err := lib.Catalog.Update(ctx, *user, isbn, ch)
	report(err, fmt.Sprintf("Updated book '%s' (ISBN %d)", updated.Title, isbn))
}

func handleDeleteBook(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	isbn, ok := askISBN(sc, "Enter ISBN of the book to delete: ")
	if !ok {
		return
	}
	removed, err := lib.Catalog.Delete(ctx, *user, isbn)
	report(err, fmt.Sprintf("Deleted book '%s' (ISBN %d)", removed.Title, isbn))
}

func handleUndo(ctx context.Context, _ *scanner, lib *library.Library, user *library.User) {
	entry, err := lib.Catalog.Undo(ctx, *user)
	if entry == nil {
		report(err, "")
		return
	}
	report(err, "Undone: "+describeUndo(entry))
}

func describeUndo(e library.UndoEntry) string {
	switch e := e.(type) {
	case library.AddEntry:
		return fmt.Sprintf("add of ISBN %d", e.ISBN)
	case library.DeleteEntry:
		return fmt.Sprintf("delete of '%s' (ISBN %d)", e.Prior.Title, e.ISBN)
	case library.UpdateEntry:
		return fmt.Sprintf("update of '%s' (ISBN %d)", e.Prior.Title, e.ISBN)
	case library.DeleteUserEntry:
		return fmt.Sprintf("delete of user %s", e.Username)
	case library.DeleteAllUsersEntry:
		return fmt.Sprintf("delete of all %d users", len(e.Prior))
	case library.ResetPasswordEntry:
		return fmt.Sprintf("password reset of %s", e.Username)
	}
	return library.UndoKind(e)
}

func handleBorrow(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	isbn, ok := askISBN(sc, "Enter ISBN of the book to borrow: ")
	if !ok {
		return
	}
	count, ok := askQuantity(sc, "How many copies: ")
	if !ok {
		return
	}
	receipt, err := lib.Catalog.Borrow(ctx, *user, isbn, count)
	if report(err, fmt.Sprintf("Borrowed %d of '%s'; earned %d points", count, receipt.Book.Title, receipt.Awarded)) {
		*user = receipt.Customer
		fmt.Printf("Points: %d  Tier: %s\n", user.Points, user.Tier())
	}
}
