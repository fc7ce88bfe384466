package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/textjournal/backend/internal/config"
	"github.com/textjournal/backend/internal/db"
	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/utils"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/create_admin <email>")
		fmt.Println("Creates the account if needed and grants it the admin role.")
		fmt.Println("The password is read from the terminal, or ADMIN_PASSWORD when stdin is not a terminal.")
		os.Exit(1)
	}
	email := utils.NormalizeEmail(os.Args[1])
	if !utils.ValidateEmail(email) {
		fmt.Printf("Invalid email: %s\n", email)
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()

	gormDB, err := db.Open(db.Config{
		DatabaseURL:     cfg.DatabaseURL,
		PoolSize:        cfg.PoolSize,
		PoolRecycle:     cfg.PoolRecycle,
		PoolPrePing:     cfg.PoolPrePing,
		ConnectTimeout:  cfg.ConnectTimeout,
		ApplicationName: cfg.ApplicationName,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	lockout := services.NewLockoutService(gormDB, cfg.LockoutThreshold, cfg.LockoutDuration, nil)
	identity := services.NewIdentityService(gormDB, services.IdentityConfig{
		JWTSecret: cfg.JWTSecret,
		JWTExpiry: cfg.JWTExpiry,
	}, lockout, nil, nil)

	var user models.User
	err = gormDB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		password, perr := readPassword()
		if perr != nil {
			log.Fatalf("Failed to read password: %v", perr)
		}
		if ok, msg := utils.ValidatePassword(password); !ok {
			fmt.Println(msg)
			os.Exit(1)
		}
		created, cerr := identity.SignUp(ctx, email, password, map[string]any{"created_by": "create_admin"})
		if cerr != nil {
			log.Fatalf("Failed to create user: %v", cerr)
		}
		user = *created
		fmt.Printf("Created account %s\n", email)
	}

	if err := identity.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
		log.Fatalf("Failed to grant admin role: %v", err)
	}

	fmt.Printf("Admin access granted\n")
	fmt.Printf("Email: %s\n", email)
	fmt.Printf("ID: %s\n", user.ID)
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
			return pw, nil
		}
		return "", errors.New("stdin is not a terminal and ADMIN_PASSWORD is unset")
	}
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
