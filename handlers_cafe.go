package main

import (
	"context"
	"fmt"

	"library-catalog/library"
)

func handleCafe(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	fmt.Println("Cafe menu:")
	for _, it := range lib.Cafe.Menu() {
		fmt.Printf("  %-15s %d points\n", it.Name, it.Points)
	}
	fmt.Printf("You have %d points.\n", user.Points)

	item, ok := sc.ask("Item to order (Enter to leave): ")
	if !ok || item == "" {
		return
	}
	updated, err := lib.Cafe.Order(ctx, *user, item)
	if report(err, fmt.Sprintf("Enjoy your %s!", item)) {
		*user = updated
		fmt.Printf("Points left: %d  Tier: %s\n", user.Points, user.Tier())
	}
}
