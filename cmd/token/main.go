// Command token prints a bearer token for local testing:
//
//	curl -H "Authorization: Bearer $(go run ./cmd/token -user alice)" localhost:8080/api/wallets
//
// The secret, issuer and lifetime come from the same configuration the
// server reads.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/warp/wallet-engine/api"
	"github.com/warp/wallet-engine/config"
	"github.com/warp/wallet-engine/ledger"
)

func main() {
	configPath := flag.String("config", "", "Config file path")
	user := flag.String("user", "", "User ID to put in the token")
	ttl := flag.Duration("ttl", 0, "Token lifetime (overrides auth.token_ttl)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *ttl > 0 {
		cfg.Auth.TokenTTL = *ttl
	}

	auth := &api.Authenticator{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.Issuer}
	token, err := auth.IssueToken(ledger.UserID(*user), cfg.Auth.TokenTTL, time.Now())
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
