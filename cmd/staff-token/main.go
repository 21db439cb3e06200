// Command staff-token mints a door-staff bearer token for deployments that
// authenticate staff with STAFF_JWT_SECRET instead of an OIDC provider.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"dinner-ticketing/internal/auth"
	"dinner-ticketing/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "staff member the token is issued to")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: staff-token -sub <name> [-ttl 12h]")
		os.Exit(2)
	}

	token, err := auth.IssueStaffToken(cfg.Auth.JWTSecret, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
