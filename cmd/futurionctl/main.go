// main.go - Admin control tool for the site
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"futurion/internal"
	"futurion/internal/config"
	"futurion/internal/forms"
	"futurion/internal/identity"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	secretBytes            = 32
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// NeedsApp reports whether the command uses the database
	NeedsApp() bool
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&SecretCommand{},
	&SignCommand{},
	&VerifyCommand{},
	&MigrateCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()
	loadEnvFiles(".env.local", ".env")

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	var app *internal.Application
	if cmd.NeedsApp() {
		var err error
		app, err = internal.NewApp()
		if err != nil {
			log.Printf("Warning: Failed to initialize app: %v", err)
			log.Println("Proceeding with limited functionality...")
		}
	}

	// Ensure app is cleaned up
	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

// SecretCommand prints a fresh widget signing secret
type SecretCommand struct{}

func (c *SecretCommand) Name() string        { return "secret" }
func (c *SecretCommand) Description() string { return "Generates a new widget signing secret" }
func (c *SecretCommand) NeedsApp() bool      { return false }

func (c *SecretCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	secret, err := generateSecret()
	if err != nil {
		return err
	}

	// Piped output stays machine readable
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("Add this line to .env.local (the chat provider must use the same secret):")
	}
	fmt.Printf("FUTURION_WIDGET_SECRET=%s\n", secret)
	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SignCommand computes an identity token with the configured secret
type SignCommand struct{}

func (c *SignCommand) Name() string        { return "sign" }
func (c *SignCommand) Description() string { return "Computes the identity token for a user id" }
func (c *SignCommand) NeedsApp() bool      { return false }

func (c *SignCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <userId>", c.Name())
	}

	svc := identity.NewService(config.GetConfig().WidgetSecret, nil)
	token, err := svc.IssueToken(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(token.Hash)
	return nil
}

// VerifyCommand checks a token against the configured secret
type VerifyCommand struct{}

func (c *VerifyCommand) Name() string        { return "verify" }
func (c *VerifyCommand) Description() string { return "Checks an identity token for a user id" }
func (c *VerifyCommand) NeedsApp() bool      { return false }

func (c *VerifyCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <userId> <hash>", c.Name())
	}

	secret := config.GetConfig().WidgetSecret
	if secret == "" {
		return identity.ErrMisconfigured
	}
	if !identity.Verify([]byte(secret), args[0], args[1]) {
		return errors.New("token does not match")
	}
	fmt.Println("Token is valid")
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }
func (c *MigrateCommand) NeedsApp() bool      { return true }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }
func (c *StatusCommand) NeedsApp() bool      { return true }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot check status: app initialization failed")
	}

	db := app.DBManager.GetConnection().WithContext(ctx)

	var messages, undelivered, subscribers int64
	if err := db.Model(&forms.ContactMessage{}).Count(&messages).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.Model(&forms.ContactMessage{}).Where("delivered_at IS NULL").Count(&undelivered).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.Model(&forms.Subscriber{}).Count(&subscribers).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	cfg := config.GetConfig()
	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Contact messages: %d (%d undelivered)", messages, undelivered)
	log.Printf("- Subscribers: %d", subscribers)
	log.Printf("- Widget secret configured: %t", app.Services.Identity.Configured())
	log.Printf("- Content backend: %t", app.Services.Content.Live())
	log.Printf("- Email delivery configured: %t", cfg.ResendAPIKey != "")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }
func (c *HelpCommand) NeedsApp() bool      { return false }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// Helper functions

func loadEnvFiles(files ...string) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: failed to load %s: %v", file, err)
		}
	}
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := flag.Args()
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: futurionctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
