package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/migrate"
	"sliceline.app/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("SLICELINE_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Path to SQL seeds")
		adminName      = flag.String("admin-name", "admin", "Name for the admin account (admin command)")
		adminEmail     = flag.String("admin-email", "", "Email for the admin account (admin command)")
		adminPassword  = flag.String("admin-password", "", "Password for the admin account (admin command)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or SLICELINE_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|admin]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *migrationsPath, *seedsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "admin":
		err = createAdmin(ctx, db, *adminName, *adminEmail, *adminPassword)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// createAdmin provisions the initial administrator. The password is hashed
// here so it never touches a seed file.
func createAdmin(ctx context.Context, db *sql.DB, name, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("admin requires -admin-email and -admin-password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	store := pg.New(db)
	user, err := store.CreateUser(ctx, &auth.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        []auth.RoleAssignment{{Role: auth.RoleAdmin}},
	})
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s (id %d)\n", user.Email, user.ID)
	return nil
}
