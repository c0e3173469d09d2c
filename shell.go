package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"library-catalog/library"
)

type scanner struct {
	*bufio.Scanner
	interactive bool
}

func newScanner(r io.Reader) *scanner {
	interactive := false
	if f, ok := r.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &scanner{Scanner: bufio.NewScanner(r), interactive: interactive}
}

// ask prints prompt and returns the trimmed next line. ok is false on EOF.
func (sc *scanner) ask(prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// readPassword reads a password with masking when stdin is a terminal.
func (sc *scanner) readPassword(prompt string) (string, error) {
	if !sc.interactive {
		line, ok := sc.ask(prompt)
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func login(sc *scanner, lib *library.Library) (library.User, error) {
	username, ok := sc.ask("Enter username: ")
	if !ok {
		return library.User{}, io.EOF
	}
	password, err := sc.readPassword("Enter password: ")
	if err != nil {
		return library.User{}, fmt.Errorf("failed to read password: %w", err)
	}
	return lib.Login(username, password)
}

func runShell(ctx context.Context, a *app, in io.Reader) error {
	sc := newScanner(in)
	fmt.Println("Welcome to the Book Management System!")

	for {
		fmt.Println()
		fmt.Println("Available commands: login, create account, exit")
		cmd, ok := sc.ask("\n> ")
		if !ok {
			return nil
		}
		switch strings.ToLower(cmd) {
		case "login":
			user, err := login(sc, a.lib)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				fmt.Printf("Login failed: %v\n", err)
				continue
			}
			fmt.Printf("Welcome, %s!\n", user.Username)
			if !session(ctx, sc, a.lib, user) {
				return nil
			}
		case "create account":
			handleCreateAccount(sc, a.lib)
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
}

type command struct {
	name string
	run  func(ctx context.Context, sc *scanner, lib *library.Library, user *library.User)
}

func staffCommands(role library.Role) []command {
	cmds := []command{
		{"list books", handleListBooks},
		{"sort books", handleSortBooks},
		{"search title", handleSearchTitle},
		{"add book", handleAddBook},
		{"update book", handleUpdateBook},
		{"delete book", handleDeleteBook},
		{"undo", handleUndo},
	}
	switch role {
	case library.RoleAdmin:
		cmds = append(cmds,
			command{"list users", handleListUsers},
			command{"delete user", handleDeleteUser},
			command{"delete all users", handleDeleteAllUsers},
			command{"reset password", handleResetPassword},
		)
	case library.RoleLibrarian:
		cmds = append(cmds,
			command{"add request", handleAddRequest},
			command{"list requests", handleListRequests},
			command{"serve request", handleServeRequest},
			command{"delete request", handleDeleteRequest},
			command{"clear requests", handleClearRequests},
			command{"list customers", handleListCustomers},
		)
	}
	return cmds
}

func customerCommands() []command {
	return []command{
		{"list books", handleListBooks},
		{"sort books", handleSortBooks},
		{"search title", handleSearchTitle},
		{"borrow", handleBorrow},
		{"my account", handleMyAccount},
		{"cafe", handleCafe},
	}
}

// session runs the role menu until logout. It returns false on EOF.
func session(ctx context.Context, sc *scanner, lib *library.Library, user library.User) bool {
	var cmds []command
	if user.Role == library.RoleCustomer {
		cmds = customerCommands()
	} else {
		cmds = staffCommands(user.Role)
	}
	names := make([]string, 0, len(cmds)+1)
	for _, c := range cmds {
		names = append(names, c.name)
	}
	names = append(names, "logout")

	for {
		fmt.Printf("\n[%s] %s\n", user.Role, strings.Join(names, ", "))
		input, ok := sc.ask("> ")
		if !ok {
			return false
		}
		input = strings.ToLower(input)
		if input == "logout" {
			fmt.Println("Logged out")
			return true
		}
		found := false
		for _, c := range cmds {
			if c.name == input {
				c.run(ctx, sc, lib, &user)
				found = true
				break
			}
		}
		if !found {
			fmt.Println("Invalid input. Please try again.")
		}
	}
}

// report prints the outcome of a mutation. A persistence warning means the
// change is live in this session but may not be on disk.
func report(err error, success string) bool {
	if err == nil {
		fmt.Println(success)
		return true
	}
	if library.IsPersistWarning(err) {
		fmt.Println(success)
		fmt.Printf("Warning: %v\n", err)
		return true
	}
	fmt.Printf("Error: %v\n", err)
	return false
}

func askISBN(sc *scanner, prompt string) (library.ISBN, bool) {
	s, ok := sc.ask(prompt)
	if !ok {
		return 0, false
	}
	isbn, err := library.ParseISBN(s)
	if err != nil {
		fmt.Printf("Invalid ISBN: %s\n", s)
		return 0, false
	}
	return isbn, true
}
