// Command autodocs is the terminal client for the AutoDocs document
// services portal: log in, order certificates, download references and, for
// staff accounts, inspect the user base.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/nomanstine/AutoDocs/api"
	"github.com/nomanstine/AutoDocs/auth"
	"github.com/nomanstine/AutoDocs/certificates"
	"github.com/nomanstine/AutoDocs/internal/config"
	"github.com/nomanstine/AutoDocs/keystore/bolt"
	"github.com/nomanstine/AutoDocs/session"
	"github.com/nomanstine/AutoDocs/users"
)

func main() {
	if len(os.Args) < 2 {
		displayAppname(config.New().GetAppName())
		usage()
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg := config.New()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	if os.Getenv("AUTODOCS_DEBUG") != "" {
		log = log.Level(zerolog.DebugLevel)
	}

	if err := os.MkdirAll(cfg.GetDataFolder(), 0o755); err != nil {
		return fmt.Errorf("creating data folder: %w", err)
	}
	keys, err := bolt.Open(filepath.Join(cfg.GetDataFolder(), "autodocs.db"))
	if err != nil {
		return err
	}
	defer keys.Close()

	store, err := session.NewStore(keys, session.WithLogger(log))
	if err != nil {
		return err
	}

	apiClient, err := api.New(cfg.GetBaseURL(), keys,
		api.WithTimeout(cfg.GetRequestTimeout()),
		api.WithLogger(log),
		api.WithTerminatedFunc(func() {
			store.Terminated()
			fmt.Fprintln(os.Stderr, "Your session has expired. Please log in again with 'autodocs login'.")
		}),
	)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(apiClient, store, keys)
	if err != nil {
		return err
	}

	app := &app{
		ctx:          context.Background(),
		config:       cfg,
		session:      store,
		gate:         session.NewGate(store),
		auth:         authService,
		users:        users.New(apiClient),
		certificates: certificates.New(apiClient),
	}

	if err := store.Initialize(); err != nil {
		return err
	}
	return app.dispatch(command, args)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: autodocs <command> [flags]

Account:
  register        Create a new account
  login           Log in and start a session
  logout          End the current session
  profile         Show the current user's profile
  update-profile  Update profile fields
  passwd          Change the account password

Documents:
  services        List orderable certificate services
  pay             Pay for a service
  generate        Generate a document from a paid transaction
  docs            List your issued documents
  doc             Show one document by id
  revoke          Revoke an issued document
  verify          Verify a certificate by reference number

Administration:
  admin-users        List user accounts
  admin-user-update  Update a user account
  admin-user-delete  Delete a user account
  admin-transactions List all payments`)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
