package library

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSeeds = []SeedUser{
	{Username: "admin", Password: "admin123", Role: RoleAdmin},
	{Username: "librarian", Password: "librarian123", Role: RoleLibrarian},
	{Username: "customer", Password: "customer123", Role: RoleCustomer, Email: "customer@email.com"},
}

func newTestLibrary(t *testing.T, snap Snapshot) (*Library, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(snap)
	lib, err := NewLibrary(store, Options{BcryptCost: bcrypt.MinCost, SeedUsers: testSeeds})
	require.NoError(t, err)
	return lib, store
}

func actor(t *testing.T, lib *Library, username string) User {
	t.Helper()
	u, ok := lib.Users.Find(username)
	require.True(t, ok, "user %s", username)
	return u
}

var goBook = Book{ISBN: 111, Title: "Go", Publisher: "Addison", Language: "English", Copies: 2, Author: "Donovan", Genre: "Programming", Points: 10}

func TestAddNormalizesAvailability(t *testing.T) {
	lib, store := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	admin := actor(t, lib, "admin")

	b := goBook
	b.Available = false
	require.NoError(t, lib.Catalog.Add(ctx, admin, b))

	got, err := lib.Catalog.Get(111)
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Equal(t, 1, lib.Catalog.UndoDepth())

	snap, _ := store.Load()
	require.Len(t, snap.Books, 1)
	assert.Equal(t, ISBN(111), snap.Books[0].ISBN)
}

func TestAddRejections(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	admin := actor(t, lib, "admin")
	require.NoError(t, lib.Catalog.Add(ctx, admin, goBook))

	t.Run("duplicate ISBN", func(t *testing.T) {
		dup := goBook
		dup.Title = "Other"
		err := lib.Catalog.Add(ctx, admin, dup)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		got, _ := lib.Catalog.Get(111)
		assert.Equal(t, "Go", got.Title)
	})
	t.Run("duplicate title", func(t *testing.T) {
		dup := goBook
		dup.ISBN = 112
		assert.ErrorIs(t, lib.Catalog.Add(ctx, admin, dup), ErrDuplicateTitle)
	})
	t.Run("negative copies", func(t *testing.T) {
		bad := Book{ISBN: 113, Title: "Bad", Copies: -1}
		assert.ErrorIs(t, lib.Catalog.Add(ctx, admin, bad), ErrInvalidQuantity)
	})
	t.Run("customer", func(t *testing.T) {
		b := Book{ISBN: 114, Title: "Nope", Copies: 1}
		assert.ErrorIs(t, lib.Catalog.Add(ctx, actor(t, lib, "customer"), b), ErrUnauthorized)
	})

	assert.Equal(t, 1, lib.Catalog.Len())
	assert.Equal(t, 1, lib.Catalog.UndoDepth())
}

func TestUpdate(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook}})
	ctx := context.Background()
	librarian := actor(t, lib, "librarian")

	zero := 0
	updated, err := lib.Catalog.Update(ctx, librarian, 111, BookChanges{Title: "Go 2", Copies: &zero})
	require.NoError(t, err)
	assert.Equal(t, "Go 2", updated.Title)
	assert.Equal(t, "Addison", updated.Publisher)
	assert.False(t, updated.Available)

	_, err = lib.Catalog.Undo(ctx, librarian)
	require.NoError(t, err)
	got, _ := lib.Catalog.Get(111)
	assert.Equal(t, "Go", got.Title)
	assert.Equal(t, 2, got.Copies)
	assert.True(t, got.Available)
}

func TestUpdateRejectsWithoutPartialChange(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook, {ISBN: 7, Title: "Rust", Copies: 1}}})
	ctx := context.Background()
	admin := actor(t, lib, "admin")

	neg := -5
	_, err := lib.Catalog.Update(ctx, admin, 111, BookChanges{Title: "Changed", Points: &neg})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	got, _ := lib.Catalog.Get(111)
	assert.Equal(t, "Go", got.Title)
	assert.Zero(t, lib.Catalog.UndoDepth())

	_, err = lib.Catalog.Update(ctx, admin, 999, BookChanges{Title: "x"})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = lib.Catalog.Update(ctx, admin, 7, BookChanges{Title: "Go", Author: "Klabnik"})
	require.ErrorIs(t, err, ErrDuplicateTitle)
	rust, _ := lib.Catalog.Get(7)
	assert.Equal(t, "Rust", rust.Title)
	assert.Empty(t, rust.Author)
	assert.Len(t, lib.Catalog.SearchTitle("Go"), 1)
	assert.Zero(t, lib.Catalog.UndoDepth())

	// Keeping a book's own title is not a collision.
	_, err = lib.Catalog.Update(ctx, admin, 111, BookChanges{Title: "Go", Author: "Kernighan"})
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Catalog.UndoDepth())
}

func TestDeleteAbsentLeavesUndoLog(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook}})
	ctx := context.Background()
	admin := actor(t, lib, "admin")

	_, err := lib.Catalog.Delete(ctx, admin, 404)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Zero(t, lib.Catalog.UndoDepth())
	assert.Equal(t, 1, lib.Catalog.Len())
}

func TestAddDeleteUndoUndoRoundTrip(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{{ISBN: 5, Title: "Existing", Copies: 1}}})
	ctx := context.Background()
	admin := actor(t, lib, "admin")
	before := lib.Catalog.List()

	require.NoError(t, lib.Catalog.Add(ctx, admin, goBook))
	removed, err := lib.Catalog.Delete(ctx, admin, 111)
	require.NoError(t, err)
	assert.Equal(t, "Go", removed.Title)

	e, err := lib.Catalog.Undo(ctx, admin)
	require.NoError(t, err)
	assert.IsType(t, DeleteEntry{}, e)
	_, err = lib.Catalog.Get(111)
	require.NoError(t, err)

	e, err = lib.Catalog.Undo(ctx, admin)
	require.NoError(t, err)
	assert.IsType(t, AddEntry{}, e)

	assert.Equal(t, before, lib.Catalog.List())
	_, err = lib.Catalog.Undo(ctx, admin)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestBorrowIsNotUndoable(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook}})
	ctx := context.Background()
	customer := actor(t, lib, "customer")
	require.Zero(t, customer.Points)

	receipt, err := lib.Catalog.Borrow(ctx, customer, 111, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.Book.Copies)
	assert.False(t, receipt.Book.Available)
	assert.Equal(t, 20, receipt.Awarded)
	assert.Equal(t, 20, receipt.Customer.Points)
	assert.Equal(t, TierC, receipt.Customer.Tier())

	_, err = lib.Catalog.Undo(ctx, actor(t, lib, "admin"))
	assert.ErrorIs(t, err, ErrNothingToUndo)

	got, _ := lib.Catalog.Get(111)
	assert.Equal(t, 0, got.Copies)
	assert.False(t, got.Available)
	assert.Equal(t, 20, actor(t, lib, "customer").Points)
	assert.Equal(t, 20.0, testutil.ToFloat64(lib.Metrics.pointsAwarded))
}

func TestBorrowAfterAddUndoesTheAdd(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	admin := actor(t, lib, "admin")

	require.NoError(t, lib.Catalog.Add(ctx, admin, goBook))
	_, err := lib.Catalog.Borrow(ctx, actor(t, lib, "customer"), 111, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Catalog.UndoDepth())

	e, err := lib.Catalog.Undo(ctx, admin)
	require.NoError(t, err)
	assert.IsType(t, AddEntry{}, e)
	assert.Zero(t, lib.Catalog.Len())
}

func TestBorrowBoundaries(t *testing.T) {
	empty := Book{ISBN: 222, Title: "Empty", Copies: 0}
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook, empty}})
	ctx := context.Background()
	customer := actor(t, lib, "customer")

	tests := []struct {
		name  string
		isbn  ISBN
		count int
		want  error
	}{
		{"zero count", 111, 0, ErrInvalidQuantity},
		{"negative count", 111, -1, ErrInvalidQuantity},
		{"more than stock", 111, 3, ErrInvalidQuantity},
		{"no stock", 222, 1, ErrUnavailable},
		{"absent", 333, 1, ErrRecordNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.Catalog.Borrow(ctx, customer, tt.isbn, tt.count)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, _ := lib.Catalog.Get(111)
	assert.Equal(t, 2, got.Copies)
	assert.Zero(t, actor(t, lib, "customer").Points)

	_, err := lib.Catalog.Borrow(ctx, actor(t, lib, "librarian"), 111, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRoleChecks(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook}})
	ctx := context.Background()
	customer := actor(t, lib, "customer")
	librarian := actor(t, lib, "librarian")

	_, err := lib.Catalog.Delete(ctx, customer, 111)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = lib.Catalog.Undo(ctx, customer)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = lib.Catalog.ListUsers(librarian)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, lib.Catalog.DeleteAllUsers(ctx, librarian), ErrUnauthorized)

	sorted, err := lib.Catalog.Sorted(customer, SortByTitleKey)
	require.NoError(t, err)
	assert.Len(t, sorted, 1)
	_, err = lib.Catalog.Sorted(User{Username: "ghost"}, SortByTitleKey)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = lib.Catalog.Sorted(customer, SortKey("colour"))
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(lib.Metrics.rejections.WithLabelValues("delete")))
	assert.Equal(t, 1, lib.Catalog.Len())
}

func TestPersistFailureKeepsInMemoryChange(t *testing.T) {
	lib, store := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	admin := actor(t, lib, "admin")
	store.FailWith = errors.New("disk full")

	err := lib.Catalog.Add(ctx, admin, goBook)
	require.Error(t, err)
	assert.True(t, IsPersistWarning(err))
	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "books", pe.Target)

	_, getErr := lib.Catalog.Get(111)
	assert.NoError(t, getErr)
	assert.Equal(t, 1, lib.Catalog.UndoDepth())
	assert.Equal(t, 1.0, testutil.ToFloat64(lib.Metrics.persistFailures.WithLabelValues("books")))

	_, err = lib.Catalog.Borrow(ctx, actor(t, lib, "customer"), 111, 1)
	assert.True(t, IsPersistWarning(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(lib.Metrics.persistFailures.WithLabelValues("users")))

	store.FailWith = nil
	_, err = lib.Catalog.Undo(ctx, admin)
	require.NoError(t, err)
	snap, _ := store.Load()
	assert.Empty(t, snap.Books)
}

func TestUserAdminUndo(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{})
	ctx := context.Background()
	admin := actor(t, lib, "admin")

	t.Run("delete user", func(t *testing.T) {
		require.NoError(t, lib.Catalog.DeleteUser(ctx, admin, "librarian"))
		_, ok := lib.Users.Find("librarian")
		require.False(t, ok)
		assert.ErrorIs(t, lib.Catalog.DeleteUser(ctx, admin, "librarian"), ErrUserNotFound)

		_, err := lib.Catalog.Undo(ctx, admin)
		require.NoError(t, err)
		_, ok = lib.Users.Find("librarian")
		assert.True(t, ok)
	})

	t.Run("delete all users", func(t *testing.T) {
		require.NoError(t, lib.Catalog.DeleteAllUsers(ctx, admin))
		assert.Zero(t, lib.Users.Len())

		_, err := lib.Catalog.Undo(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, 3, lib.Users.Len())
	})

	t.Run("reset password", func(t *testing.T) {
		err := lib.Catalog.ResetPassword(ctx, admin, "customer", "weak")
		assert.ErrorIs(t, err, ErrWeakPassword)

		require.NoError(t, lib.Catalog.ResetPassword(ctx, admin, "customer", "N3w!Passw0rd"))
		_, err = lib.Login("customer", "N3w!Passw0rd")
		require.NoError(t, err)

		_, err = lib.Catalog.Undo(ctx, admin)
		require.NoError(t, err)
		_, err = lib.Login("customer", "customer123")
		assert.NoError(t, err)
		_, err = lib.Login("customer", "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(lib.Metrics.undos.WithLabelValues("reset_password")))
}

func TestSearchTitle(t *testing.T) {
	lib, _ := newTestLibrary(t, Snapshot{Books: []Book{goBook, {ISBN: 7, Title: "Rust", Copies: 1}}})
	found := lib.Catalog.SearchTitle("go")
	require.Len(t, found, 1)
	assert.Equal(t, ISBN(111), found[0].ISBN)
	assert.Empty(t, lib.Catalog.SearchTitle("Python"))
}
