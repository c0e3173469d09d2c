package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/internal/display"
	"library-catalog/library"
)

var (
	dbFile   string
	csvFile  string
	resetDB  bool
	importer = library.User{Username: "import_books", Role: library.RoleAdmin}
)

// columns expected in the CSV header, in any order.
var columns = []string{"isbn", "title", "publisher", "language", "copies", "author", "genre", "points"}

func main() {
	cmd := &cobra.Command{
		Use:   "import_books",
		Short: "Bulk load book records from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&dbFile, "db", "library.db", "SQLite database file")
	cmd.Flags().StringVar(&csvFile, "file", "books.csv", "CSV file with a header row")
	cmd.Flags().BoolVar(&resetDB, "reset", false, "remove existing database files first")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if resetDB {
		fmt.Println("Cleaning up existing database files...")
		for _, file := range []string{dbFile, dbFile + "-shm", dbFile + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
	}

	db, err := library.NewDatabase(dbFile)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	lib, err := library.NewLibrary(db, library.Options{Logger: logger})
	if err != nil {
		return err
	}

	f, err := os.Open(csvFile)
	if err != nil {
		return fmt.Errorf("error reading books file: %w", err)
	}
	defer f.Close()

	fmt.Printf("Importing books from %s...\n", csvFile)
	ok, failed, err := importCSV(ctx, lib, f)
	if err != nil {
		return err
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", ok)
	fmt.Printf("Errors: %d\n", failed)

	if ok > 0 {
		fmt.Println("\nCatalog:")
		fmt.Printf("%-14s %-50s %-30s\n", "ISBN", "Title", "Author")
		fmt.Println(strings.Repeat("-", 95))
		for _, book := range lib.Catalog.List() {
			fmt.Printf("%-14d %-50s %-30s\n", book.ISBN, display.Truncate(book.Title, 50), display.Truncate(book.Author, 30))
		}
	}
	return nil
}

// importCSV adds every row of r to the catalog and returns how many rows were
// imported and how many were rejected.
func importCSV(ctx context.Context, lib *library.Library, r io.Reader) (int, int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := pos[c]; !ok && c != "points" {
			return 0, 0, fmt.Errorf("missing column %q", c)
		}
	}

	successCount, errorCount := 0, 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return successCount, errorCount, fmt.Errorf("line %d: %w", line, err)
		}

		b, err := parseBook(rec, pos)
		if err != nil {
			fmt.Printf("Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}
		fmt.Printf("Importing: %s by %s... ", b.Title, b.Author)
		if err := lib.Catalog.Add(ctx, importer, b); err != nil && !library.IsPersistWarning(err) {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		} else if err != nil {
			fmt.Printf("WARNING - %v\n", err)
		}
		fmt.Printf("SUCCESS (ISBN: %d)\n", b.ISBN)
		successCount++
	}
	return successCount, errorCount, nil
}

func parseBook(rec []string, pos map[string]int) (library.Book, error) {
	field := func(name string) string {
		i, ok := pos[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	isbn, err := library.ParseISBN(field("isbn"))
	if err != nil {
		return library.Book{}, err
	}
	b := library.Book{
		ISBN:      isbn,
		Title:     field("title"),
		Publisher: field("publisher"),
		Language:  field("language"),
		Author:    field("author"),
		Genre:     field("genre"),
	}
	copies, err := strconv.Atoi(field("copies"))
	if err != nil {
		return library.Book{}, fmt.Errorf("copies: %w", err)
	}
	if err := b.SetCopies(copies); err != nil {
		return library.Book{}, err
	}
	if p := field("points"); p != "" {
		points, err := strconv.Atoi(p)
		if err != nil {
			return library.Book{}, fmt.Errorf("points: %w", err)
		}
		if err := b.SetPoints(points); err != nil {
			return library.Book{}, err
		}
	}
	return b, nil
}
