package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/logger"
)

func main() {
	email := flag.String("email", "", "email of the user")
	role := flag.String("role", "ADMIN", "role to grant: CLIENT, FIXER, AGENT or ADMIN")
	flag.Parse()

	if *email == "" {
		logger.Log.Fatal().Msg("usage: grant_role -email user@example.com -role ADMIN")
	}
	r := identity.Role(*role)
	switch r {
	case identity.RoleClient, identity.RoleFixer, identity.RoleAgent, identity.RoleAdmin:
	default:
		logger.Log.Fatal().Str("role", *role).Msg("unknown role")
	}

	_ = godotenv.Load()
	db.Init()
	defer db.Close()

	ct, err := db.Conn.Exec(context.Background(), `
        UPDATE users SET roles = array_append(roles, $1)
        WHERE email = $2 AND NOT ($1 = ANY(roles))`,
		string(r), *email)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to grant role")
	}
	if ct.RowsAffected() == 0 {
		logger.Log.Fatal().Str("email", *email).Msg("no such user, or role already granted")
	}

	fmt.Printf("granted %s to %s\n", r, *email)
}
