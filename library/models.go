package library

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ISBN is the unique key of a catalog record.
type ISBN int64

func (i ISBN) String() string { return strconv.FormatInt(int64(i), 10) }

// ParseISBN parses a decimal ISBN as typed at the console.
func ParseISBN(s string) (ISBN, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ISBN %q: %w", s, err)
	}
	return ISBN(n), nil
}

// Book is a catalog record. Available always mirrors Copies > 0; use SetCopies
// rather than assigning Copies directly.
type Book struct {
	ISBN      ISBN   `json:"isbn"`
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Language  string `json:"language"`
	Copies    int    `json:"copies"`
	Available bool   `json:"available"`
	Author    string `json:"author"`
	Genre     string `json:"genre"`
	Points    int    `json:"points"` // reward points per borrowed copy
}

// SetCopies sets the copy count and recomputes availability.
func (b *Book) SetCopies(n int) error {
	if n < 0 {
		return fmt.Errorf("copies %d: %w", n, ErrInvalidQuantity)
	}
	b.Copies = n
	b.Available = n > 0
	return nil
}

// SetPoints sets the reward points awarded per borrowed copy.
func (b *Book) SetPoints(n int) error {
	if n < 0 {
		return fmt.Errorf("points %d: %w", n, ErrInvalidQuantity)
	}
	b.Points = n
	return nil
}

// normalize enforces the derived availability invariant.
func (b *Book) normalize() { b.Available = b.Copies > 0 }

func (b Book) validate() error {
	if b.Copies < 0 {
		return fmt.Errorf("copies %d: %w", b.Copies, ErrInvalidQuantity)
	}
	if b.Points < 0 {
		return fmt.Errorf("points %d: %w", b.Points, ErrInvalidQuantity)
	}
	return nil
}

// BookChanges describes a partial update. Empty strings and nil pointers keep
// the current value.
type BookChanges struct {
	Title     string
	Publisher string
	Language  string
	Author    string
	Genre     string
	Copies    *int
	Points    *int
}

// Apply validates every field first and only then mutates b, so a rejected
// change leaves b untouched.
func (c BookChanges) Apply(b *Book) error {
	if c.Copies != nil && *c.Copies < 0 {
		return fmt.Errorf("copies %d: %w", *c.Copies, ErrInvalidQuantity)
	}
	if c.Points != nil && *c.Points < 0 {
		return fmt.Errorf("points %d: %w", *c.Points, ErrInvalidQuantity)
	}
	if c.Title != "" {
		b.Title = c.Title
	}
	if c.Publisher != "" {
		b.Publisher = c.Publisher
	}
	if c.Language != "" {
		b.Language = c.Language
	}
	if c.Author != "" {
		b.Author = c.Author
	}
	if c.Genre != "" {
		b.Genre = c.Genre
	}
	if c.Copies != nil {
		_ = b.SetCopies(*c.Copies)
	}
	if c.Points != nil {
		_ = b.SetPoints(*c.Points)
	}
	return nil
}

// ParseQuantity parses a non-negative integer. Blank input yields (nil, nil),
// meaning "keep the current value".
func ParseQuantity(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%q is not a non-negative integer: %w", s, ErrInvalidQuantity)
	}
	return &n, nil
}

// Role is a user's permission level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleCustomer  Role = "customer"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleLibrarian, RoleCustomer:
		return r, nil
	}
	return "", fmt.Errorf("role %q: %w", s, ErrInvalidRole)
}

// Tier is the loyalty class of a customer, derived from points.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// User is a registry entry. CustomerID, Email and Points are only meaningful
// for customers.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	CustomerID   string `json:"customer_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Points       int    `json:"points"`
}

// Tier is recomputed from Points on every call and never stored.
func (u User) Tier() Tier { return TierFor(u.Points) }

// CustomerRequest is a pending request queued by a librarian on behalf of a customer.
type CustomerRequest struct {
	ID         uuid.UUID `json:"id"`
	CustomerID string    `json:"customer_id"`
	Detail     string    `json:"detail"`
}

// MenuItem is something a customer can buy at the cafe with points.
type MenuItem struct {
	Name   string `json:"name" yaml:"name"`
	Points int    `json:"points" yaml:"points"`
}
