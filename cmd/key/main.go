package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ride-coordinator/internal/cli"
)

func main() {
	var (
		userID = flag.String("user-id", "", "Account id of the user (subject)")
		role   = flag.String("role", "driver", "User role: driver | passenger | admin")
		secret = flag.String("secret", "", "JWT HMAC secret (HS256)")
		ttl    = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *userID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: key --user-id=<id> --role=driver --secret='<secret>' [--ttl=2h]")
		os.Exit(2)
	}

	token, claims, err := cli.GenerateUserToken(*secret, *ttl, *userID, *role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:  %s\n", claims.Subject)
	fmt.Printf("  role: %s\n", claims.Role)
	fmt.Printf("  jti:  %s\n", claims.ID)
	fmt.Printf("  iat:  %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:  %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
