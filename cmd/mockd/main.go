// Command mockd serves the in-memory mock portal backend for local
// development of the AutoDocs client. It speaks the same wire contract as
// the production API but holds everything in memory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/nomanstine/AutoDocs/internal/config"
	"github.com/nomanstine/AutoDocs/internal/mockapi"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running server: %s\n", err)
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName() + " mock")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	backend := mockapi.New(mockapi.WithLogger(logger))
	seedAccounts(backend)

	server := &http.Server{Addr: c.GetPort(), Handler: http.StripPrefix("/api", backend)}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

// seedAccounts provisions known logins so the client is usable immediately.
func seedAccounts(backend *mockapi.Server) {
	if _, err := backend.SeedAccount("Demo Student", "student@autodocs.test", "password123", "student"); err != nil {
		log.Printf("seeding student account: %s\n", err)
	}
	if _, err := backend.SeedAccount("Portal Admin", "admin@autodocs.test", "admin123", "admin"); err != nil {
		log.Printf("seeding admin account: %s\n", err)
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Mock portal API listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
