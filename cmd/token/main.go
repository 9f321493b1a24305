// Package main mints an access token for local testing.
//
// The server trusts any token signed with the key under the data path, so
// this is the way to get a bearer token without an identity provider.
//
// Usage:
//
//	DATA_PATH=~/Overflow/data go run ./cmd/token --user u_alice
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/devoverflow/overflow-server/internal/auth"
	"github.com/devoverflow/overflow-server/internal/id"
)

var (
	userID   = flag.String("user", "", "User ID to embed (default: a fresh id)")
	lifetime = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
)

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Overflow/data")
	}

	key, err := auth.LoadOrGenerateKey(dataPath)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}

	tokens, err := auth.NewTokenService(key, *lifetime)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	user := *userID
	if user == "" {
		user = id.MustGenerate(id.PrefixUser)
	}

	token, err := tokens.GenerateAccessToken(user)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user: %s\nexpires in: %s\n", user, *lifetime)
	fmt.Println(token)
}
