package library

import (
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Options tunes a Library. The zero value is usable.
type Options struct {
	Logger  *slog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer

	BcryptCost             int
	LoginAttemptsPerMinute int
	SeedUsers              []SeedUser
	Menu                   []MenuItem
}

// Library is one session over the catalog, the user registry and the request
// queue. All state lives here; independent Libraries share nothing but what
// their stores share.
type Library struct {
	Catalog  *Catalog
	Requests *RequestDesk
	Cafe     *Cafe
	Users    *Users
	Metrics  *Metrics

	persist *persister
	logger  *slog.Logger
}

// NewLibrary loads the store's snapshot, rebuilds the index and the request
// queue from it, and seeds the user registry if it is empty.
func NewLibrary(store Store, opts Options) (*Library, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("library-catalog/library")
	}
	if len(opts.Menu) == 0 {
		opts.Menu = DefaultMenu
	}

	snap, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	index := NewIndex()
	for _, b := range snap.Books {
		b.normalize()
		index.Insert(b)
	}
	queue := NewRequestQueue(snap.Requests)
	users := NewUsers(snap.Users, opts.BcryptCost, opts.LoginAttemptsPerMinute, opts.Logger)
	p := &persister{store: store, logger: opts.Logger, metrics: opts.Metrics}

	lib := &Library{
		Catalog: &Catalog{
			index:   index,
			undo:    &UndoLog{},
			users:   users,
			persist: p,
			logger:  opts.Logger,
			metrics: opts.Metrics,
			tracer:  opts.Tracer,
		},
		Requests: &RequestDesk{
			queue:   queue,
			users:   users,
			persist: p,
			logger:  opts.Logger,
			metrics: opts.Metrics,
			tracer:  opts.Tracer,
		},
		Cafe: &Cafe{
			menu:    append([]MenuItem(nil), opts.Menu...),
			users:   users,
			persist: p,
			logger:  opts.Logger,
			metrics: opts.Metrics,
			tracer:  opts.Tracer,
		},
		Users:   users,
		Metrics: opts.Metrics,
		persist: p,
		logger:  opts.Logger,
	}
	opts.Metrics.setQueueDepth(queue.Len())

	// Seed only a registry that has never been saved, not one emptied on purpose.
	if !snap.UsersSaved {
		seeded, err := users.Seed(opts.SeedUsers)
		if err != nil {
			return nil, err
		}
		if seeded {
			opts.Logger.Info("seeded user registry", slog.Int("count", users.Len()))
			if err := p.users(users); err != nil {
				return nil, err
			}
		}
	}

	opts.Logger.Info("library loaded",
		slog.Int("books", index.Len()),
		slog.Int("users", users.Len()),
		slog.Int("requests", queue.Len()))
	return lib, nil
}

// Login authenticates a user for the session.
func (l *Library) Login(username, password string) (User, error) {
	u, err := l.Users.Authenticate(username, password)
	if err != nil {
		l.logger.Info("login failed", slog.String("username", username), slog.Any("error", err))
		return User{}, err
	}
	l.logger.Info("login", slog.String("username", username), slog.String("role", string(u.Role)))
	return u, nil
}

// CreateAccount registers a new user and saves the registry.
func (l *Library) CreateAccount(username, password string, role Role, email string) (User, error) {
	u, err := l.Users.Register(username, password, role, email)
	if err != nil {
		return User{}, err
	}
	l.Metrics.mutation("create_account")
	return u, l.persist.users(l.Users)
}

// Refresh returns the current registry state of u, e.g. after points changed.
func (l *Library) Refresh(u User) (User, bool) { return l.Users.Find(u.Username) }
