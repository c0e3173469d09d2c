package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"library-catalog/internal/display"
	"library-catalog/library"
)

func handleAddRequest(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	customerID, ok := sc.ask("Customer ID: ")
	if !ok {
		return
	}
	detail, ok := sc.ask("Request: ")
	if !ok {
		return
	}
	req, err := lib.Requests.Submit(ctx, *user, customerID, detail)
	report(err, fmt.Sprintf("Request %s queued (%d pending)", req.ID, lib.Requests.Count()))
}

func handleListRequests(_ context.Context, _ *scanner, lib *library.Library, _ *library.User) {
	pending := lib.Requests.Pending()
	if len(pending) == 0 {
		fmt.Println("No pending requests.")
		return
	}
	fmt.Printf("%-4s %-36s %-12s %s\n", "#", "Request ID", "Customer ID", "Detail")
	fmt.Println(strings.Repeat("-", 100))
	for i, r := range pending {
		fmt.Printf("%-4d %-36s %-12s %s\n", i+1, r.ID, r.CustomerID, r.Detail)
	}
}

func handleServeRequest(ctx context.Context, _ *scanner, lib *library.Library, user *library.User) {
	req, customer, err := lib.Requests.Serve(ctx, *user)
	who := req.CustomerID
	if customer != nil {
		who = fmt.Sprintf("%s (%s)", customer.Username, customer.Email)
	}
	report(err, fmt.Sprintf("Serving request for %s: %s", who, req.Detail))
}

func handleDeleteRequest(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	s, ok := sc.ask("Request ID: ")
	if !ok {
		return
	}
	id, err := uuid.Parse(s)
	if err != nil {
		fmt.Printf("Invalid request ID: %s\n", s)
		return
	}
	req, err := lib.Requests.Remove(ctx, *user, id)
	report(err, fmt.Sprintf("Deleted request '%s'", req.Detail))
}

func handleClearRequests(ctx context.Context, _ *scanner, lib *library.Library, user *library.User) {
	n, err := lib.Requests.Clear(ctx, *user)
	report(err, fmt.Sprintf("Deleted %d request(s)", n))
}

func handleListCustomers(_ context.Context, _ *scanner, lib *library.Library, user *library.User) {
	overview, err := lib.Requests.Overview(*user)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(overview) == 0 {
		fmt.Println("No customers registered.")
		return
	}
	fmt.Printf("%-20s %-12s %-30s %-8s %-5s %s\n", "Username", "Customer ID", "Email", "Points", "Tier", "Requests")
	fmt.Println(strings.Repeat("-", 110))
	for _, ov := range overview {
		reqs := "None"
		if len(ov.Requests) > 0 {
			reqs = strings.Join(ov.Requests, "; ")
		}
		c := ov.Customer
		fmt.Printf("%-20s %-12s %-30s %-8d %-5s %s\n",
			display.Truncate(c.Username, 20), c.CustomerID, display.Truncate(c.Email, 30), c.Points, c.Tier(), reqs)
	}
}
