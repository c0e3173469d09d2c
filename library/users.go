package library

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// SeedUser is a bootstrap account created when the registry is empty.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     Role   `yaml:"role"`
	Email    string `yaml:"email,omitempty"`
}

// Users is the user registry. It owns the accounts; other components read
// them by username or customer id and mutate them only through the methods
// below.
type Users struct {
	list    []User
	cost    int
	limiter *rate.Limiter
	logger  *slog.Logger

	// newCustomerID is swapped in tests for deterministic ids.
	newCustomerID func() string
}

// NewUsers builds a registry from persisted accounts. attemptsPerMinute <= 0
// disables login rate limiting.
func NewUsers(list []User, bcryptCost, attemptsPerMinute int, logger *slog.Logger) *Users {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if attemptsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(attemptsPerMinute)), attemptsPerMinute)
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Users{
		list:          append([]User(nil), list...),
		cost:          bcryptCost,
		limiter:       limiter,
		logger:        logger,
		newCustomerID: randomCustomerID,
	}
}

// ---------------------------------------------------------------------------
// Policy
// ---------------------------------------------------------------------------

var (
	emailPattern   = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidatePassword enforces the password policy: at least 8 characters with
// an upper case letter, a lower case letter, a digit and a special character.
func ValidatePassword(pw string) error {
	switch {
	case len(pw) < 8:
		return fmt.Errorf("%w: must be at least 8 characters long", ErrWeakPassword)
	case !strings.ContainsAny(pw, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"):
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	case !strings.ContainsAny(pw, "abcdefghijklmnopqrstuvwxyz"):
		return fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	case !strings.ContainsAny(pw, "0123456789"):
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	case !specialPattern.MatchString(pw):
		return fmt.Errorf("%w: must contain a special character", ErrWeakPassword)
	}
	return nil
}

// ValidateEmail checks the address shape, e.g. example@domain.com.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%q: %w", email, ErrInvalidEmail)
	}
	return nil
}

const customerIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomCustomerID() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = customerIDAlphabet[rand.Intn(len(customerIDAlphabet))]
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Find returns the account named username.
func (u *Users) Find(username string) (User, bool) {
	if i := u.indexOf(username); i >= 0 {
		return u.list[i], true
	}
	return User{}, false
}

// FindByCustomerID returns the customer carrying id.
func (u *Users) FindByCustomerID(id string) (User, bool) {
	if id == "" {
		return User{}, false
	}
	for _, usr := range u.list {
		if usr.CustomerID == id {
			return usr, true
		}
	}
	return User{}, false
}

// All returns a copy of every account in registration order.
func (u *Users) All() []User { return append([]User(nil), u.list...) }

// Customers returns only the customer accounts.
func (u *Users) Customers() []User {
	var out []User
	for _, usr := range u.list {
		if usr.Role == RoleCustomer {
			out = append(out, usr)
		}
	}
	return out
}

func (u *Users) Len() int { return len(u.list) }

func (u *Users) indexOf(username string) int {
	for i, usr := range u.list {
		if usr.Username == username {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

// Register creates an account after checking the password policy and, for
// customers, the email address. Customers receive a fresh unique customer id.
// The caller persists the registry.
func (u *Users) Register(username, password string, role Role, email string) (User, error) {
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}
	return u.add(username, password, role, email)
}

func (u *Users) add(username, password string, role Role, email string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("username cannot be empty: %w", ErrInvalidCredentials)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return User{}, err
	}
	if u.indexOf(username) >= 0 {
		return User{}, fmt.Errorf("%s: %w", username, ErrDuplicateUser)
	}

	usr := User{Username: username, Role: role}
	if role == RoleCustomer {
		if err := ValidateEmail(email); err != nil {
			return User{}, err
		}
		usr.Email = email
		usr.CustomerID = u.uniqueCustomerID()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	usr.PasswordHash = string(hash)

	u.list = append(u.list, usr)
	u.logger.Info("user registered", slog.String("username", username), slog.String("role", string(role)))
	return usr, nil
}

func (u *Users) uniqueCustomerID() string {
	for {
		id := u.newCustomerID()
		if _, taken := u.FindByCustomerID(id); !taken {
			return id
		}
	}
}

// Seed creates the bootstrap accounts when the registry is empty and reports
// whether it did so. Seed passwords skip the password policy.
func (u *Users) Seed(seeds []SeedUser) (bool, error) {
	if len(u.list) > 0 || len(seeds) == 0 {
		return false, nil
	}
	for _, s := range seeds {
		if _, err := u.add(s.Username, s.Password, s.Role, s.Email); err != nil {
			return false, fmt.Errorf("seed user %s: %w", s.Username, err)
		}
	}
	return true, nil
}

// Authenticate checks a username/password pair. Attempts are rate limited
// whether or not they succeed.
func (u *Users) Authenticate(username, password string) (User, error) {
	if !u.limiter.Allow() {
		return User{}, ErrRateLimited
	}
	usr, ok := u.Find(username)
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("verify password: %w", err)
	}
	return usr, nil
}

// ---------------------------------------------------------------------------
// Mutations used by the services
// ---------------------------------------------------------------------------

func (u *Users) addPoints(username string, n int) (User, error) {
	i := u.indexOf(username)
	if i < 0 {
		return User{}, fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	u.list[i].Points += n
	return u.list[i], nil
}

func (u *Users) spendPoints(username string, n int) (User, error) {
	i := u.indexOf(username)
	if i < 0 {
		return User{}, fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	if u.list[i].Points < n {
		return u.list[i], fmt.Errorf("need %d, have %d: %w", n, u.list[i].Points, ErrInsufficientPoints)
	}
	u.list[i].Points -= n
	return u.list[i], nil
}

func (u *Users) remove(username string) (User, error) {
	i := u.indexOf(username)
	if i < 0 {
		return User{}, fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	removed := u.list[i]
	u.list = append(u.list[:i:i], u.list[i+1:]...)
	return removed, nil
}

// restore puts prior back, replacing any account that has since taken its name.
func (u *Users) restore(prior User) {
	if i := u.indexOf(prior.Username); i >= 0 {
		u.list[i] = prior
		return
	}
	u.list = append(u.list, prior)
}

func (u *Users) replaceAll(list []User) []User {
	prev := u.list
	u.list = append([]User(nil), list...)
	return prev
}

func (u *Users) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// setHash replaces a password hash and returns the previous one.
func (u *Users) setHash(username, hash string) (string, error) {
	i := u.indexOf(username)
	if i < 0 {
		return "", fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	prev := u.list[i].PasswordHash
	u.list[i].PasswordHash = hash
	return prev, nil
}
