package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Catalog owns the book index and the undo log. Every successful mutation
// pushes exactly one undo entry and then saves the affected collection;
// borrowing is the exception and is not undoable.
type Catalog struct {
	index   *Index
	undo    *UndoLog
	users   *Users
	persist *persister
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// BorrowReceipt is the outcome of a successful borrow.
type BorrowReceipt struct {
	Book     Book
	Customer User
	Awarded  int
}

var staffRoles = []Role{RoleAdmin, RoleLibrarian}

func (c *Catalog) authorize(actor User, op string, roles ...Role) error {
	if slices.Contains(roles, actor.Role) {
		return nil
	}
	c.metrics.rejection(op)
	c.logger.Info("unauthorized operation",
		slog.String("op", op),
		slog.String("actor", actor.Username),
		slog.String("role", string(actor.Role)))
	return fmt.Errorf("%s by %s (%s): %w", op, actor.Username, actor.Role, ErrUnauthorized)
}

func (c *Catalog) reject(op string, err error) error {
	c.metrics.rejection(op)
	return err
}

func (c *Catalog) startSpan(ctx context.Context, op string, actor User, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("actor.username", actor.Username), attribute.String("actor.role", string(actor.Role)))
	return c.tracer.Start(ctx, "catalog."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Get returns a copy of the book stored under isbn.
func (c *Catalog) Get(isbn ISBN) (Book, error) {
	b, ok := c.index.Search(isbn)
	if !ok {
		return Book{}, fmt.Errorf("ISBN %d: %w", isbn, ErrRecordNotFound)
	}
	return *b, nil
}

// List returns every book in ascending ISBN order.
func (c *Catalog) List() []Book { return c.index.InOrder() }

func (c *Catalog) Len() int { return c.index.Len() }

// Sorted returns the catalog in the requested order. Any known role may read.
func (c *Catalog) Sorted(actor User, key SortKey) ([]Book, error) {
	if err := c.authorize(actor, "sort", RoleAdmin, RoleLibrarian, RoleCustomer); err != nil {
		return nil, err
	}
	if !slices.Contains(SortKeys, key) {
		return nil, fmt.Errorf("unknown sort key %q", key)
	}
	c.logger.Info("catalog sorted", slog.String("actor", actor.Username), slog.String("key", string(key)))
	return key.Apply(c.index.InOrder()), nil
}

// SearchTitle finds books whose title matches exactly, ignoring case.
func (c *Catalog) SearchTitle(title string) []Book {
	return SearchByTitle(c.index.InOrder(), title)
}

// UndoDepth is the number of mutations that can still be undone.
func (c *Catalog) UndoDepth() int { return c.undo.Len() }

// titleTaken reports whether a book other than except already has title.
func (c *Catalog) titleTaken(title string, except ISBN) bool {
	taken := false
	c.index.Walk(func(b *Book) bool {
		taken = b.ISBN != except && b.Title == title
		return !taken
	})
	return taken
}

// ---------------------------------------------------------------------------
// Book mutations
// ---------------------------------------------------------------------------

// Add inserts a new book. The ISBN and the title must both be unused.
func (c *Catalog) Add(ctx context.Context, actor User, b Book) (err error) {
	_, span := c.startSpan(ctx, "add", actor, attribute.Int64("book.isbn", int64(b.ISBN)))
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "add", staffRoles...); err != nil {
		return err
	}
	if _, exists := c.index.Search(b.ISBN); exists {
		return c.reject("add", fmt.Errorf("ISBN %d: %w", b.ISBN, ErrDuplicateKey))
	}
	if c.titleTaken(b.Title, b.ISBN) {
		return c.reject("add", fmt.Errorf("%q: %w", b.Title, ErrDuplicateTitle))
	}
	if err := b.validate(); err != nil {
		return c.reject("add", err)
	}
	b.normalize()

	c.index.Insert(b)
	c.undo.Push(AddEntry{ISBN: b.ISBN})
	c.metrics.mutation("add")
	c.logger.Info("book added", slog.String("actor", actor.Username), slog.Int64("isbn", int64(b.ISBN)), slog.String("title", b.Title))
	return c.persist.books(c.index)
}

// Update applies changes to an existing book and returns its new state.
func (c *Catalog) Update(ctx context.Context, actor User, isbn ISBN, changes BookChanges) (_ Book, err error) {
	_, span := c.startSpan(ctx, "update", actor, attribute.Int64("book.isbn", int64(isbn)))
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "update", staffRoles...); err != nil {
		return Book{}, err
	}
	b, ok := c.index.Search(isbn)
	if !ok {
		return Book{}, c.reject("update", fmt.Errorf("ISBN %d: %w", isbn, ErrRecordNotFound))
	}
	prior := *b
	if changes.Title != "" && changes.Title != b.Title && c.titleTaken(changes.Title, isbn) {
		return prior, c.reject("update", fmt.Errorf("%q: %w", changes.Title, ErrDuplicateTitle))
	}
	if err := changes.Apply(b); err != nil {
		return prior, c.reject("update", err)
	}

	c.undo.Push(UpdateEntry{ISBN: isbn, Prior: prior})
	c.metrics.mutation("update")
	c.logger.Info("book updated", slog.String("actor", actor.Username), slog.Int64("isbn", int64(isbn)))
	return *b, c.persist.books(c.index)
}

// Delete removes a book and returns the removed record.
func (c *Catalog) Delete(ctx context.Context, actor User, isbn ISBN) (_ Book, err error) {
	_, span := c.startSpan(ctx, "delete", actor, attribute.Int64("book.isbn", int64(isbn)))
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "delete", staffRoles...); err != nil {
		return Book{}, err
	}
	b, ok := c.index.Search(isbn)
	if !ok {
		return Book{}, c.reject("delete", fmt.Errorf("ISBN %d: %w", isbn, ErrRecordNotFound))
	}
	removed := *b
	c.index.Delete(isbn)

	c.undo.Push(DeleteEntry{ISBN: isbn, Prior: removed})
	c.metrics.mutation("delete")
	c.logger.Info("book deleted", slog.String("actor", actor.Username), slog.Int64("isbn", int64(isbn)))
	return removed, c.persist.books(c.index)
}

// Borrow takes count copies of a book for a customer and awards the book's
// points per copy. Borrowing is not recorded in the undo log.
func (c *Catalog) Borrow(ctx context.Context, customer User, isbn ISBN, count int) (_ BorrowReceipt, err error) {
	_, span := c.startSpan(ctx, "borrow", customer,
		attribute.Int64("book.isbn", int64(isbn)),
		attribute.Int("borrow.count", count))
	defer func() { endSpan(span, err) }()

	if err := c.authorize(customer, "borrow", RoleCustomer); err != nil {
		return BorrowReceipt{}, err
	}
	b, ok := c.index.Search(isbn)
	if !ok {
		return BorrowReceipt{}, c.reject("borrow", fmt.Errorf("ISBN %d: %w", isbn, ErrRecordNotFound))
	}
	if !b.Available || b.Copies == 0 {
		return BorrowReceipt{}, c.reject("borrow", fmt.Errorf("ISBN %d: %w", isbn, ErrUnavailable))
	}
	if count <= 0 || count > b.Copies {
		return BorrowReceipt{}, c.reject("borrow", fmt.Errorf("cannot borrow %d of %d copies: %w", count, b.Copies, ErrInvalidQuantity))
	}
	if _, ok := c.users.Find(customer.Username); !ok {
		return BorrowReceipt{}, c.reject("borrow", fmt.Errorf("%s: %w", customer.Username, ErrUserNotFound))
	}

	_ = b.SetCopies(b.Copies - count)
	awarded := b.Points * count
	updated, err := c.users.addPoints(customer.Username, awarded)
	if err != nil {
		return BorrowReceipt{}, err
	}

	c.metrics.mutation("borrow")
	c.metrics.awarded(awarded)
	c.logger.Info("book borrowed",
		slog.String("customer", customer.Username),
		slog.Int64("isbn", int64(isbn)),
		slog.Int("count", count),
		slog.Int("points_awarded", awarded),
		slog.String("tier", string(updated.Tier())))

	receipt := BorrowReceipt{Book: *b, Customer: updated, Awarded: awarded}
	return receipt, errors.Join(c.persist.books(c.index), c.persist.users(c.users))
}

// ---------------------------------------------------------------------------
// User administration
// ---------------------------------------------------------------------------

// ListUsers returns every account. Admin only.
func (c *Catalog) ListUsers(actor User) ([]User, error) {
	if err := c.authorize(actor, "list_users", RoleAdmin); err != nil {
		return nil, err
	}
	return c.users.All(), nil
}

// DeleteUser removes one account. Admin only; undoable.
func (c *Catalog) DeleteUser(ctx context.Context, actor User, username string) (err error) {
	_, span := c.startSpan(ctx, "delete_user", actor, attribute.String("target.username", username))
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "delete_user", RoleAdmin); err != nil {
		return err
	}
	removed, err := c.users.remove(username)
	if err != nil {
		return c.reject("delete_user", err)
	}
	c.undo.Push(DeleteUserEntry{Username: username, Prior: removed})
	c.metrics.mutation("delete_user")
	c.logger.Info("user deleted", slog.String("actor", actor.Username), slog.String("username", username))
	return c.persist.users(c.users)
}

// DeleteAllUsers empties the registry. Admin only; undoable.
func (c *Catalog) DeleteAllUsers(ctx context.Context, actor User) (err error) {
	_, span := c.startSpan(ctx, "delete_all_users", actor)
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "delete_all_users", RoleAdmin); err != nil {
		return err
	}
	prior := c.users.replaceAll(nil)
	c.undo.Push(DeleteAllUsersEntry{Prior: prior})
	c.metrics.mutation("delete_all_users")
	c.logger.Info("all users deleted", slog.String("actor", actor.Username), slog.Int("count", len(prior)))
	return c.persist.users(c.users)
}

// ResetPassword sets a new password for username. Admin only; undoable.
func (c *Catalog) ResetPassword(ctx context.Context, actor User, username, newPassword string) (err error) {
	_, span := c.startSpan(ctx, "reset_password", actor, attribute.String("target.username", username))
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "reset_password", RoleAdmin); err != nil {
		return err
	}
	if _, ok := c.users.Find(username); !ok {
		return c.reject("reset_password", fmt.Errorf("%s: %w", username, ErrUserNotFound))
	}
	if err := ValidatePassword(newPassword); err != nil {
		return c.reject("reset_password", err)
	}
	hash, err := c.users.hashPassword(newPassword)
	if err != nil {
		return err
	}
	prev, err := c.users.setHash(username, hash)
	if err != nil {
		return err
	}
	c.undo.Push(ResetPasswordEntry{Username: username, PriorHash: prev})
	c.metrics.mutation("reset_password")
	c.logger.Info("password reset", slog.String("actor", actor.Username), slog.String("username", username))
	return c.persist.users(c.users)
}

// ---------------------------------------------------------------------------
// Undo
// ---------------------------------------------------------------------------

// Undo reverses the most recent recorded mutation and returns the entry it
// consumed. The entry is consumed even when applying it fails.
func (c *Catalog) Undo(ctx context.Context, actor User) (_ UndoEntry, err error) {
	_, span := c.startSpan(ctx, "undo", actor)
	defer func() { endSpan(span, err) }()

	if err := c.authorize(actor, "undo", staffRoles...); err != nil {
		return nil, err
	}
	entry, err := c.undo.Pop()
	if err != nil {
		return nil, c.reject("undo", err)
	}
	span.SetAttributes(attribute.String("undo.kind", entry.undoKind()))

	if err := c.apply(entry); err != nil {
		return entry, err
	}
	c.metrics.undo(entry.undoKind())
	c.logger.Info("operation undone", slog.String("actor", actor.Username), slog.String("kind", entry.undoKind()))

	switch entry.(type) {
	case AddEntry, DeleteEntry, UpdateEntry:
		return entry, c.persist.books(c.index)
	default:
		return entry, c.persist.users(c.users)
	}
}

func (c *Catalog) apply(entry UndoEntry) error {
	switch e := entry.(type) {
	case AddEntry:
		c.index.Delete(e.ISBN)
	case DeleteEntry:
		c.restoreBook(e.Prior)
	case UpdateEntry:
		c.restoreBook(e.Prior)
	case DeleteUserEntry:
		c.users.restore(e.Prior)
	case DeleteAllUsersEntry:
		c.users.replaceAll(e.Prior)
	case ResetPasswordEntry:
		if _, err := c.users.setHash(e.Username, e.PriorHash); err != nil {
			return fmt.Errorf("undo password reset: %w", err)
		}
	default:
		return fmt.Errorf("unknown undo entry %T", entry)
	}
	return nil
}

func (c *Catalog) restoreBook(prior Book) {
	if b, ok := c.index.Search(prior.ISBN); ok {
		*b = prior
		return
	}
	c.index.Insert(prior)
}
