package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"storeadmin/backend/internal/auth"
	"storeadmin/backend/internal/config"
	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
	"storeadmin/backend/internal/storage/memory"
	sqlstore "storeadmin/backend/internal/storage/sql"
)

// 创建管理员账户的运维工具，直接写入配置的存储后端。
func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: create-admin <email> <password> <username>")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	username := os.Args[3]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			fmt.Printf("Failed to connect database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	} else {
		store = memory.NewStore()
	}

	if !domain.ValidateEmail(email) {
		fmt.Println("Invalid email format")
		os.Exit(1)
	}
	if err := domain.ValidateUsername(username); err != nil {
		fmt.Printf("Invalid username: %v\n", err)
		os.Exit(1)
	}
	if err := domain.ValidatePassword(password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         domain.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := store.CreateUser(user); err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Admin user created successfully!\n")
	fmt.Printf("  ID:       %s\n", user.ID)
	fmt.Printf("  Email:    %s\n", user.Email)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Role:     %s\n", user.Role)

	if cfg.Database.Type == "" {
		fmt.Println("\nNote: no database configured, this user exists only in memory.")
	}
}
