package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Database is a Store backed by a SQLite file. Each Save rewrites one table
// inside a transaction.
type Database struct {
	db *sql.DB
	mu sync.Mutex

	insertBookStmt    *sql.Stmt
	insertUserStmt    *sql.Stmt
	insertRequestStmt *sql.Stmt
}

var _ Store = (*Database)(nil)

// NewDatabase opens (or creates) the SQLite database at dbPath, creates the
// schema, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sql.Stmt{d.insertBookStmt, d.insertUserStmt, d.insertRequestStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applySchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            isbn INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            publisher TEXT NOT NULL,
            language TEXT NOT NULL,
            copies INTEGER NOT NULL CHECK (copies >= 0),
            available BOOLEAN NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            points INTEGER NOT NULL CHECK (points >= 0)
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL,
            customer_id TEXT,
            email TEXT,
            points INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS customer_requests (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL UNIQUE,
            customer_id TEXT NOT NULL,
            detail TEXT NOT NULL
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertBookStmt, err = d.db.Prepare(`INSERT INTO books(isbn,title,publisher,language,copies,available,author,genre,points) VALUES(?,?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertUserStmt, err = d.db.Prepare(`INSERT INTO users(username,password_hash,role,customer_id,email,points) VALUES(?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertRequestStmt, err = d.db.Prepare(`INSERT INTO customer_requests(position,id,customer_id,detail) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// Load reads every table. Requests come back in queue order.
func (d *Database) Load() (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Books, err = d.loadBooks(); err != nil {
		return Snapshot{}, err
	}
	if snap.Users, err = d.loadUsers(); err != nil {
		return Snapshot{}, err
	}
	if snap.Requests, err = d.loadRequests(); err != nil {
		return Snapshot{}, err
	}
	if snap.UsersSaved, err = d.usersSaved(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// usersSaved reports whether SaveUsers has ever committed, even an empty list.
func (d *Database) usersSaved() (bool, error) {
	var v string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key='users_saved'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select users_saved: %w", err)
	}
	return true, nil
}

func (d *Database) loadBooks() ([]Book, error) {
	rows, err := d.db.Query(`SELECT isbn,title,publisher,language,copies,available,author,genre,points FROM books ORDER BY isbn`)
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Publisher, &b.Language, &b.Copies, &b.Available, &b.Author, &b.Genre, &b.Points); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (d *Database) loadUsers() ([]User, error) {
	rows, err := d.db.Query(`SELECT username,password_hash,role,COALESCE(customer_id,''),COALESCE(email,''),points FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Role, &u.CustomerID, &u.Email, &u.Points); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *Database) loadRequests() ([]CustomerRequest, error) {
	rows, err := d.db.Query(`SELECT id,customer_id,detail FROM customer_requests ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	defer rows.Close()

	var requests []CustomerRequest
	for rows.Next() {
		var (
			r  CustomerRequest
			id string
		)
		if err := rows.Scan(&id, &r.CustomerID, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("request id %q: %w", id, err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

// replaceTable deletes every row of table and re-inserts via fill, all in one
// transaction.
func (d *Database) replaceTable(table string, fill func(tx *sql.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *Database) SaveBooks(books []Book) error {
	return d.replaceTable("books", func(tx *sql.Tx) error {
		stmt := tx.Stmt(d.insertBookStmt)
		for _, b := range books {
			if _, err := stmt.Exec(b.ISBN, b.Title, b.Publisher, b.Language, b.Copies, b.Available, b.Author, b.Genre, b.Points); err != nil {
				return fmt.Errorf("insert book %d: %w", b.ISBN, err)
			}
		}
		return nil
	})
}

func (d *Database) SaveUsers(users []User) error {
	return d.replaceTable("users", func(tx *sql.Tx) error {
		stmt := tx.Stmt(d.insertUserStmt)
		for _, u := range users {
			if _, err := stmt.Exec(u.Username, u.PasswordHash, string(u.Role), nullIfEmpty(u.CustomerID), nullIfEmpty(u.Email), u.Points); err != nil {
				return fmt.Errorf("insert user %s: %w", u.Username, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('users_saved','1')
            ON CONFLICT(key) DO NOTHING;`); err != nil {
			return fmt.Errorf("mark users saved: %w", err)
		}
		return nil
	})
}

func (d *Database) SaveRequests(requests []CustomerRequest) error {
	return d.replaceTable("customer_requests", func(tx *sql.Tx) error {
		stmt := tx.Stmt(d.insertRequestStmt)
		for i, r := range requests {
			if _, err := stmt.Exec(i, r.ID.String(), r.CustomerID, r.Detail); err != nil {
				return fmt.Errorf("insert request %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
