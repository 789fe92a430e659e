// Command devtoken prints a bearer token for local requests against the API.
//
//	go run ./cmd/devtoken -sub user_42
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wardrobe/service/internal/auth"
	"github.com/wardrobe/service/internal/logger"
)

func main() {
	sub := flag.String("sub", "", "owner identity to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	log := logger.New("info", false)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change_me_in_production"
		log.Warn().Msg("JWT_SECRET not set, using the development default")
	}

	token, err := auth.IssueToken(secret, *sub, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("issue token")
	}
	fmt.Println(token)
}
