package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMenu is served when no menu is configured.
var DefaultMenu = []MenuItem{
	{Name: "Coffee", Points: 10},
	{Name: "Tea", Points: 8},
	{Name: "Sandwich", Points: 15},
	{Name: "Cake", Points: 12},
}

// Cafe lets customers spend reward points.
type Cafe struct {
	menu    []MenuItem
	users   *Users
	persist *persister
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Menu returns the items on offer.
func (c *Cafe) Menu() []MenuItem { return append([]MenuItem(nil), c.menu...) }

func (c *Cafe) item(name string) (MenuItem, bool) {
	for _, it := range c.menu {
		if strings.EqualFold(it.Name, strings.TrimSpace(name)) {
			return it, true
		}
	}
	return MenuItem{}, false
}

// Order charges the item's price to the customer and returns the customer's
// updated account.
func (c *Cafe) Order(ctx context.Context, customer User, itemName string) (_ User, err error) {
	_, span := c.tracer.Start(ctx, "cafe.order", trace.WithAttributes(
		attribute.String("actor.username", customer.Username),
		attribute.String("item", itemName)))
	defer func() { endSpan(span, err) }()

	if customer.Role != RoleCustomer {
		c.metrics.rejection("cafe_order")
		return User{}, fmt.Errorf("cafe order by %s (%s): %w", customer.Username, customer.Role, ErrUnauthorized)
	}
	it, ok := c.item(itemName)
	if !ok {
		c.metrics.rejection("cafe_order")
		return User{}, fmt.Errorf("%q: %w", itemName, ErrMenuItemNotFound)
	}
	updated, err := c.users.spendPoints(customer.Username, it.Points)
	if err != nil {
		c.metrics.rejection("cafe_order")
		return updated, err
	}
	c.metrics.mutation("cafe_order")
	c.logger.Info("cafe order placed",
		slog.String("customer", customer.Username),
		slog.String("item", it.Name),
		slog.Int("points_spent", it.Points),
		slog.String("tier", string(updated.Tier())))
	return updated, c.persist.users(c.users)
}
