package main

import (
	"context"
	"fmt"
	"strings"

	"library-catalog/internal/display"
	"library-catalog/library"
)

func handleCreateAccount(sc *scanner, lib *library.Library) {
	username, ok := sc.ask("Enter a new username: ")
	if !ok {
		return
	}
	fmt.Println("Password needs 8+ characters with upper and lower case letters, a digit and a symbol.")
	password, err := sc.readPassword("Enter a new password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	roleStr, ok := sc.ask("Enter role (admin/librarian/customer): ")
	if !ok {
		return
	}
	role, err := library.ParseRole(roleStr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	var email string
	if role == library.RoleCustomer {
		if email, ok = sc.ask("Enter email: "); !ok {
			return
		}
	}

	u, err := lib.CreateAccount(username, password, role, email)
	msg := fmt.Sprintf("Account created for %s (%s)", u.Username, u.Role)
	if u.CustomerID != "" {
		msg += fmt.Sprintf(". Your customer ID is %s", u.CustomerID)
	}
	report(err, msg)
}

func printUsers(users []library.User) {
	if len(users) == 0 {
		fmt.Println("No users registered.")
		return
	}
	fmt.Printf("%-20s %-10s %-12s %-30s %-8s %s\n", "Username", "Role", "Customer ID", "Email", "Points", "Tier")
	fmt.Println(strings.Repeat("-", 95))
	for _, u := range users {
		tier := ""
		if u.Role == library.RoleCustomer {
			tier = string(u.Tier())
		}
		fmt.Printf("%-20s %-10s %-12s %-30s %-8d %s\n",
			display.Truncate(u.Username, 20), u.Role, u.CustomerID, display.Truncate(u.Email, 30), u.Points, tier)
	}
}

func handleListUsers(_ context.Context, _ *scanner, lib *library.Library, user *library.User) {
	users, err := lib.Catalog.ListUsers(*user)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printUsers(users)
}

func handleDeleteUser(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	username, ok := sc.ask("Username to delete: ")
	if !ok {
		return
	}
	if username == user.Username {
		fmt.Println("Error: you cannot delete the account you are logged in with")
		return
	}
	err := lib.Catalog.DeleteUser(ctx, *user, username)
	report(err, fmt.Sprintf("User %s deleted", username))
}

func handleDeleteAllUsers(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	confirm, ok := sc.ask("Delete every account? Type YES to confirm: ")
	if !ok || confirm != "YES" {
		fmt.Println("Cancelled")
		return
	}
	err := lib.Catalog.DeleteAllUsers(ctx, *user)
	report(err, "All users deleted. Use 'undo' to restore them.")
}

func handleResetPassword(ctx context.Context, sc *scanner, lib *library.Library, user *library.User) {
	username, ok := sc.ask("Username: ")
	if !ok {
		return
	}
	newPassword, err := sc.readPassword(fmt.Sprintf("Enter new password for %s: ", username))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	err = lib.Catalog.ResetPassword(ctx, *user, username, newPassword)
	report(err, fmt.Sprintf("Password successfully reset for %s", username))
}

func handleMyAccount(_ context.Context, _ *scanner, lib *library.Library, user *library.User) {
	if fresh, ok := lib.Refresh(*user); ok {
		*user = fresh
	}
	fmt.Printf("Username:    %s\n", user.Username)
	fmt.Printf("Customer ID: %s\n", user.CustomerID)
	fmt.Printf("Email:       %s\n", user.Email)
	fmt.Printf("Points:      %d\n", user.Points)
	fmt.Printf("Tier:        %s\n", user.Tier())
	if reqs := lib.Requests.ForCustomer(user.CustomerID); len(reqs) > 0 {
		fmt.Println("Pending requests:")
		for i, r := range reqs {
			fmt.Printf("  %d. %s\n", i+1, r.Detail)
		}
	}
}
