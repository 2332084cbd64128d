package main

import (
	"fmt"
	"os"
	"time"

	"github.com/menutalk/kiku/internal/middleware"
)

func main() {
	secret := os.Getenv("SESSION_JWT_SECRET")
	if secret == "" || len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: SESSION_JWT_SECRET must be set and a session id given")
		fmt.Fprintln(os.Stderr, "Usage: SESSION_JWT_SECRET=secret go run scripts/generate-jwt.go <session-id> [ttl]")
		os.Exit(1)
	}

	ttl := time.Hour
	if len(os.Args) > 2 {
		d, err := time.ParseDuration(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing ttl: %v\n", err)
			os.Exit(1)
		}
		ttl = d
	}

	token, err := middleware.IssueSessionToken(secret, os.Args[1], ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
