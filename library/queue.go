package library

import "github.com/google/uuid"

// RequestQueue holds customer requests in arrival order.
type RequestQueue struct {
	items []CustomerRequest
}

// NewRequestQueue restores a queue from a persisted, already ordered list.
func NewRequestQueue(items []CustomerRequest) *RequestQueue {
	return &RequestQueue{items: append([]CustomerRequest(nil), items...)}
}

// Enqueue appends r at the tail.
func (q *RequestQueue) Enqueue(r CustomerRequest) { q.items = append(q.items, r) }

// Dequeue removes and returns the head of the queue.
func (q *RequestQueue) Dequeue() (CustomerRequest, error) {
	if len(q.items) == 0 {
		return CustomerRequest{}, ErrQueueEmpty
	}
	head := q.items[0]
	q.items[0] = CustomerRequest{}
	q.items = q.items[1:]
	return head, nil
}

// Peek returns the head without removing it.
func (q *RequestQueue) Peek() (CustomerRequest, error) {
	if len(q.items) == 0 {
		return CustomerRequest{}, ErrQueueEmpty
	}
	return q.items[0], nil
}

func (q *RequestQueue) Len() int { return len(q.items) }

// Items returns a copy of the queue, head first.
func (q *RequestQueue) Items() []CustomerRequest {
	return append([]CustomerRequest(nil), q.items...)
}

// Remove deletes the request with the given id, keeping the order of the rest.
func (q *RequestQueue) Remove(id uuid.UUID) (CustomerRequest, bool) {
	for i, r := range q.items {
		if r.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return r, true
		}
	}
	return CustomerRequest{}, false
}

// Clear drops every request.
func (q *RequestQueue) Clear() { q.items = nil }

// ForCustomer returns the requests queued for customerID, in queue order.
func (q *RequestQueue) ForCustomer(customerID string) []CustomerRequest {
	var out []CustomerRequest
	for _, r := range q.items {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out
}
