package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestDesk is the librarian's view of the customer request queue. Every
// change to the queue is saved immediately.
type RequestDesk struct {
	queue   *RequestQueue
	users   *Users
	persist *persister
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// CustomerOverview pairs a customer with their pending request details.
type CustomerOverview struct {
	Customer User
	Requests []string
}

func (d *RequestDesk) authorize(actor User, op string) error {
	if actor.Role == RoleLibrarian {
		return nil
	}
	d.metrics.rejection(op)
	return fmt.Errorf("%s by %s (%s): only librarians manage customer requests: %w", op, actor.Username, actor.Role, ErrUnauthorized)
}

func (d *RequestDesk) changed() error {
	d.metrics.setQueueDepth(d.queue.Len())
	return d.persist.requests(d.queue)
}

// Count returns the number of pending requests.
func (d *RequestDesk) Count() int { return d.queue.Len() }

// Pending returns the queue, head first.
func (d *RequestDesk) Pending() []CustomerRequest { return d.queue.Items() }

// ForCustomer returns the pending requests of one customer.
func (d *RequestDesk) ForCustomer(customerID string) []CustomerRequest {
	return d.queue.ForCustomer(customerID)
}

// Submit queues a request for an existing customer.
func (d *RequestDesk) Submit(ctx context.Context, actor User, customerID, detail string) (_ CustomerRequest, err error) {
	_, span := d.tracer.Start(ctx, "requests.submit", trace.WithAttributes(attribute.String("customer.id", customerID)))
	defer func() { endSpan(span, err) }()

	if err := d.authorize(actor, "submit_request"); err != nil {
		return CustomerRequest{}, err
	}
	if _, ok := d.users.FindByCustomerID(customerID); !ok {
		d.metrics.rejection("submit_request")
		return CustomerRequest{}, fmt.Errorf("customer %q: %w", customerID, ErrUserNotFound)
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		d.metrics.rejection("submit_request")
		return CustomerRequest{}, ErrEmptyRequest
	}

	req := CustomerRequest{ID: uuid.New(), CustomerID: customerID, Detail: detail}
	d.queue.Enqueue(req)
	d.metrics.mutation("submit_request")
	d.logger.Info("customer request queued", slog.String("actor", actor.Username), slog.String("customer_id", customerID), slog.String("request_id", req.ID.String()))
	return req, d.changed()
}

// Serve removes the oldest request and returns it together with the customer
// it belongs to. The customer is nil if the account no longer exists.
func (d *RequestDesk) Serve(ctx context.Context, actor User) (_ CustomerRequest, _ *User, err error) {
	_, span := d.tracer.Start(ctx, "requests.serve")
	defer func() { endSpan(span, err) }()

	if err := d.authorize(actor, "serve_request"); err != nil {
		return CustomerRequest{}, nil, err
	}
	req, err := d.queue.Dequeue()
	if err != nil {
		return CustomerRequest{}, nil, err
	}
	var customer *User
	if u, ok := d.users.FindByCustomerID(req.CustomerID); ok {
		customer = &u
	}
	d.metrics.mutation("serve_request")
	d.logger.Info("customer request served", slog.String("actor", actor.Username), slog.String("request_id", req.ID.String()))
	return req, customer, d.changed()
}

// Remove deletes one request wherever it sits in the queue.
func (d *RequestDesk) Remove(ctx context.Context, actor User, id uuid.UUID) (_ CustomerRequest, err error) {
	_, span := d.tracer.Start(ctx, "requests.remove", trace.WithAttributes(attribute.String("request.id", id.String())))
	defer func() { endSpan(span, err) }()

	if err := d.authorize(actor, "remove_request"); err != nil {
		return CustomerRequest{}, err
	}
	req, ok := d.queue.Remove(id)
	if !ok {
		d.metrics.rejection("remove_request")
		return CustomerRequest{}, fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	}
	d.metrics.mutation("remove_request")
	d.logger.Info("customer request deleted", slog.String("actor", actor.Username), slog.String("request_id", id.String()))
	return req, d.changed()
}

// Clear deletes every pending request and returns how many were dropped.
func (d *RequestDesk) Clear(ctx context.Context, actor User) (_ int, err error) {
	_, span := d.tracer.Start(ctx, "requests.clear")
	defer func() { endSpan(span, err) }()

	if err := d.authorize(actor, "clear_requests"); err != nil {
		return 0, err
	}
	n := d.queue.Len()
	d.queue.Clear()
	d.metrics.mutation("clear_requests")
	d.logger.Info("all customer requests deleted", slog.String("actor", actor.Username), slog.Int("count", n))
	return n, d.changed()
}

// Overview lists every customer with the details of their pending requests.
func (d *RequestDesk) Overview(actor User) ([]CustomerOverview, error) {
	if err := d.authorize(actor, "view_customers"); err != nil {
		return nil, err
	}
	customers := d.users.Customers()
	out := make([]CustomerOverview, 0, len(customers))
	for _, c := range customers {
		ov := CustomerOverview{Customer: c}
		for _, r := range d.queue.ForCustomer(c.CustomerID) {
			ov.Requests = append(ov.Requests, r.Detail)
		}
		out = append(out, ov)
	}
	return out, nil
}
