package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/holidayhomes/bookingapi/internal/adapter/postgres"
	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
	"github.com/holidayhomes/bookingapi/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "reset-password":
		return runAdminResetPassword(args[1:])
	case "list-users":
		return runAdminListUsers(args[1:])
	case "hash-password":
		return runAdminHashPassword(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	case "migrate-down":
		return runAdminMigrateDown(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: bookingapi admin <command> [options]

Commands:
  create-user      Create an admin user for one property
  reset-password   Reset an admin user's password
  list-users       List all admin users
  hash-password    Print a bcrypt hash for manual provisioning
  migrate-status   Show the current schema version
  migrate-down     Roll back schema migrations
  help             Show this help message

Examples:
  bookingapi admin create-user --username owner --property preswylfa
  bookingapi admin reset-password --username owner
  bookingapi admin list-users
  bookingapi admin migrate-down --steps 1
`)
}

func loadAdminDeps() (*service.AuthService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	tenants, err := service.NewTenantRegistry(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("tenants: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	authSvc := service.NewAuthService(store, cfg.Auth, tenants)

	cleanup := func() {
		pool.Close()
	}
	return authSvc, cleanup, nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "login name (required)")
	property := fs.String("property", "", "property slug the user manages (required)")
	displayName := fs.String("display-name", "", "name shown after login")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return errors.New("--username is required")
	}
	if *property == "" {
		return errors.New("--property is required")
	}

	pass := *password
	if pass == "" {
		var err error
		if pass, err = promptNewPassword("Password: "); err != nil {
			return err
		}
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	u, err := authSvc.Register(context.Background(), &user.CreateRequest{
		Username:    *username,
		Password:    pass,
		TenantSlug:  *property,
		DisplayName: *displayName,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id=%s, property=%s)\n", u.Username, u.ID, u.TenantSlug)
	return nil
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	username := fs.String("username", "", "login name (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return errors.New("--username is required")
	}

	newPass := *password
	if newPass == "" {
		var err error
		if newPass, err = promptNewPassword("New password: "); err != nil {
			return err
		}
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := authSvc.ResetPassword(context.Background(), *username, newPass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", *username)
	return nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := authSvc.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tPROPERTY\tDISPLAY_NAME\tCREATED")
	for i := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			users[i].ID, users[i].Username, users[i].TenantSlug, users[i].DisplayName,
			users[i].CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runAdminHashPassword(args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tenants, err := service.NewTenantRegistry(cfg)
	if err != nil {
		return fmt.Errorf("tenants: %w", err)
	}

	pass := *password
	if pass == "" {
		if pass, err = promptNewPassword("Password: "); err != nil {
			return err
		}
	}

	// Hashing needs no database connection.
	hash, err := service.NewAuthService(nil, cfg.Auth, tenants).HashPassword(pass)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	v, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Printf("schema version: %d\n", v)
	return nil
}

func runAdminMigrateDown(args []string) error {
	fs := flag.NewFlagSet("migrate-down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return errors.New("--steps must be at least 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	return nil
}

// promptNewPassword reads a password twice from the terminal without echoing.
func promptNewPassword(prompt string) (string, error) {
	pass, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", errors.New("passwords do not match")
	}
	return pass, nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
