package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"saastracker-backend/pkg/client"
	"saastracker-backend/pkg/usersync"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	baseURL := flag.String("base-url", os.Getenv("SAASTRACKER_BASE_URL"), "backend base URL, e.g. https://api.example.com")
	fallbackURL := flag.String("fallback-url", os.Getenv("SAASTRACKER_FALLBACK_URL"), "plain HTTP create-user endpoint; defaults to <base-url>/userCreateHttp")
	id := flag.String("id", "", "external identity id (required)")
	email := flag.String("email", "", "primary email address")
	firstName := flag.String("first-name", "", "first name")
	lastName := flag.String("last-name", "", "last name")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	verbose := flag.Bool("v", false, "log protocol steps to stderr")
	flag.Parse()

	if *baseURL == "" || *id == "" {
		fmt.Fprintln(os.Stderr, "Usage: usersync -base-url <url> -id <identity id> [-email <email>] [-first-name <name>] [-last-name <name>]")
		os.Exit(2)
	}
	if *fallbackURL == "" {
		*fallbackURL = strings.TrimRight(*baseURL, "/") + "/userCreateHttp"
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		logger = l
	}
	defer logger.Sync() //nolint:errcheck

	r := usersync.New(client.New(*baseURL), client.NewHTTPFallback(*fallbackURL), logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	user, err := r.Reconcile(ctx, usersync.Identity{
		ID:        *id,
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
	})
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(user); err != nil {
		log.Fatal(err)
	}
}
