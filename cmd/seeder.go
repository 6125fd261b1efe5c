package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/identity-service/internal/permission"
	"github.com/frahmantamala/identity-service/internal/role"
	rolepg "github.com/frahmantamala/identity-service/internal/role/postgres"
	"github.com/frahmantamala/identity-service/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the default roles and an admin user",
	Long:  `Seed the database with the built-in roles and a superuser account for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		ctx := context.Background()
		registry := role.NewRegistry(rolepg.NewRepository(db), logger.LoggerWrapper())

		for _, r := range defaultRoles() {
			if err := registry.Ensure(ctx, r); err != nil {
				log.Fatalf("failed to seed role %s: %v", r.Name, err)
			}
			fmt.Println("Seeded role:", r.Name)
		}

		adminEmail := "admin@mail.com"
		var exists int
		row := db.Raw("SELECT 1 FROM users WHERE email = ?", adminEmail).Row()
		if err := row.Scan(&exists); err == nil {
			fmt.Println("admin user already exists, nothing to do")
			return
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		err = db.Exec(
			`INSERT INTO users (email, first_name, last_name, password_hash, is_active, is_superuser, date_joined, updated_at)
			 VALUES (?, ?, ?, ?, true, true, now(), now())`,
			adminEmail, "Admin", "User", string(hash),
		).Error
		if err != nil {
			log.Fatalf("failed to insert admin user: %v", err)
		}

		fmt.Println("Seeded superuser:", adminEmail)
	},
}

func defaultRoles() []*role.Role {
	userDoc := permission.Document{
		"profile": permission.Actions(map[string]permission.Action{
			"view": permission.Allow(true),
			"edit": permission.Allow(true),
		}),
		"content": permission.Actions(map[string]permission.Action{
			"create": permission.Allow(true),
			"read":   permission.Allow(true),
			"update": permission.Allow(true),
			"delete": permission.Allow(true),
		}),
	}

	moderatorDoc := permission.Document{
		"profile": permission.Actions(map[string]permission.Action{
			"view": permission.Allow(true),
			"edit": permission.Allow(true),
		}),
		"content": permission.Actions(map[string]permission.Action{
			"create":   permission.Allow(true),
			"read":     permission.Allow(true),
			"update":   permission.Allow(true),
			"delete":   permission.Conditional(map[string]any{"condition": "own_only"}),
			"moderate": permission.Allow(true),
		}),
		"reports": permission.List("view", "resolve"),
	}

	adminDoc := permission.Document{
		"profile": permission.Actions(map[string]permission.Action{
			"view": permission.Allow(true),
			"edit": permission.Allow(true),
		}),
		"content": permission.Actions(map[string]permission.Action{
			"create":   permission.Allow(true),
			"read":     permission.Allow(true),
			"update":   permission.Allow(true),
			"delete":   permission.Allow(true),
			"moderate": permission.Allow(true),
		}),
		"reports": permission.List("view", "resolve", "escalate"),
		"roles":   permission.List("manage"),
		"users":   permission.List("list", "deactivate"),
	}

	return []*role.Role{
		{Name: "user", Description: "Default role for registered users", Permissions: userDoc, IsActive: true},
		{Name: "moderator", Description: "Content moderation", Permissions: moderatorDoc, IsActive: true},
		{Name: "admin", Description: "Full administrative access", Permissions: adminDoc, IsActive: true},
	}
}
