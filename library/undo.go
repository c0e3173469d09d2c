package library

// UndoEntry describes how to reverse one committed mutation. The set of
// implementations is closed; Catalog.Undo switches over them.
type UndoEntry interface {
	undoKind() string
}

// AddEntry reverses an added book by deleting it again.
type AddEntry struct {
	ISBN ISBN
}

// DeleteEntry restores a deleted book.
type DeleteEntry struct {
	ISBN  ISBN
	Prior Book
}

// UpdateEntry restores a book to its state before an update.
type UpdateEntry struct {
	ISBN  ISBN
	Prior Book
}

// DeleteUserEntry restores a single deleted user.
type DeleteUserEntry struct {
	Username string
	Prior    User
}

// DeleteAllUsersEntry restores the registry as it was before it was wiped.
type DeleteAllUsersEntry struct {
	Prior []User
}

// ResetPasswordEntry restores a user's previous password hash.
type ResetPasswordEntry struct {
	Username  string
	PriorHash string
}

func (AddEntry) undoKind() string            { return "add" }
func (DeleteEntry) undoKind() string         { return "delete" }
func (UpdateEntry) undoKind() string         { return "update" }
func (DeleteUserEntry) undoKind() string     { return "delete_user" }
func (DeleteAllUsersEntry) undoKind() string { return "delete_all_users" }
func (ResetPasswordEntry) undoKind() string  { return "reset_password" }

// UndoKind returns the short operation name of e, as used in logs and metrics.
func UndoKind(e UndoEntry) string { return e.undoKind() }

// UndoLog is a LIFO stack of undo entries with no capacity bound.
type UndoLog struct {
	entries []UndoEntry
}

// Push records e as the most recent mutation.
func (l *UndoLog) Push(e UndoEntry) { l.entries = append(l.entries, e) }

// Pop removes and returns the most recent entry.
func (l *UndoLog) Pop() (UndoEntry, error) {
	if len(l.entries) == 0 {
		return nil, ErrNothingToUndo
	}
	last := len(l.entries) - 1
	e := l.entries[last]
	l.entries[last] = nil
	l.entries = l.entries[:last]
	return e, nil
}

// Peek returns the most recent entry without removing it.
func (l *UndoLog) Peek() (UndoEntry, bool) {
	if len(l.entries) == 0 {
		return nil, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l *UndoLog) Len() int { return len(l.entries) }
