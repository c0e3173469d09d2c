package library

import "log/slog"

// persister writes collections after an in-memory commit. A failed write is
// logged, counted and handed back as a *PersistError; nothing is rolled back.
type persister struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

func (p *persister) save(target string, write func() error) error {
	if err := write(); err != nil {
		p.metrics.persistFailure(target)
		p.logger.Warn("save failed after in-memory commit",
			slog.String("target", target),
			slog.Any("error", err))
		return &PersistError{Target: target, Err: err}
	}
	return nil
}

func (p *persister) books(ix *Index) error {
	return p.save("books", func() error { return p.store.SaveBooks(ix.InOrder()) })
}

func (p *persister) users(u *Users) error {
	return p.save("users", func() error { return p.store.SaveUsers(u.All()) })
}

func (p *persister) requests(q *RequestQueue) error {
	return p.save("requests", func() error { return p.store.SaveRequests(q.Items()) })
}
