package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/auth"
	"github.com/frahmantamala/identity-service/internal/passwordreset"
	presetpg "github.com/frahmantamala/identity-service/internal/passwordreset/postgres"
	"github.com/frahmantamala/identity-service/internal/role"
	rolepg "github.com/frahmantamala/identity-service/internal/role/postgres"
	"github.com/frahmantamala/identity-service/internal/token"
	tokenpg "github.com/frahmantamala/identity-service/internal/token/postgres"
	"github.com/frahmantamala/identity-service/internal/transport/rest"
	"github.com/frahmantamala/identity-service/internal/user"
	userpg "github.com/frahmantamala/identity-service/internal/user/postgres"
	"github.com/frahmantamala/identity-service/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Router      *chi.Mux
	Logger      *slog.Logger
	AuthHandler *auth.Handler
	RBAC        *auth.RBACAuthorization
	UserHandler *user.Handler
	RoleHandler *role.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.AuthHandler,
		deps.RBAC,
		deps.UserHandler,
		deps.RoleHandler,
		deps.Logger,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	userRepo := userpg.NewRepository(gormDB)
	roleRepo := rolepg.NewRepository(gormDB)
	tokenRepo := tokenpg.NewRepository(gormDB)
	resetRepo := presetpg.NewRepository(gormDB)

	registry := role.NewRegistry(roleRepo, lg)
	tokenStore := token.NewStore(tokenRepo, config.Security.RefreshTokenDuration, lg)
	resetStore := passwordreset.NewStore(resetRepo, config.Security.ResetTokenDuration, lg)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.AccessTokenSecret, config.Security.AccessTokenDuration)
	hasher := auth.NewPasswordHasher(config.Security.BCryptCost)

	authService := auth.NewService(
		userRepo, tokenStore, resetStore, registry,
		tokenGen, hasher, config.Security.RotateRefreshTokens, lg,
	)
	userService := user.NewService(userRepo, registry)

	return &Dependencies{
		Config:      config,
		DB:          db,
		Router:      chi.NewRouter(),
		Logger:      lg,
		AuthHandler: auth.NewHandler(authService),
		RBAC:        auth.NewRBACAuthorization(authService, lg),
		UserHandler: user.NewHandler(userService),
		RoleHandler: role.NewHandler(registry),
	}, nil
}

// initDB initializes the database connection pool
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
