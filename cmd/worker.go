package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/identity-service/internal/passwordreset"
	presetpg "github.com/frahmantamala/identity-service/internal/passwordreset/postgres"
	"github.com/frahmantamala/identity-service/internal/sweeper"
	"github.com/frahmantamala/identity-service/internal/token"
	tokenpg "github.com/frahmantamala/identity-service/internal/token/postgres"
	"github.com/frahmantamala/identity-service/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
}

// Token sweep worker command
var sweepWorkerCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Start the expired token sweeper",
	Long:  `Periodically deletes expired refresh and password reset tokens.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweepWorker()
	},
}

func startSweepWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init db: %v\n", err)
		os.Exit(1)
	}
	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm connection: %v\n", err)
		os.Exit(1)
	}

	tokenStore := token.NewStore(tokenpg.NewRepository(db), cfg.Security.RefreshTokenDuration, lg)
	resetStore := passwordreset.NewStore(presetpg.NewRepository(db), cfg.Security.ResetTokenDuration, lg)

	s := sweeper.New(cfg.Security.SweepInterval, lg)
	s.Register("refresh_tokens", tokenStore)
	s.Register("password_reset_tokens", resetStore)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("sweep worker is running", "interval", cfg.Security.SweepInterval)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	sig := <-sigChan
	lg.Info("received signal, shutting down sweep worker", "signal", sig)
	cancel()
	<-done

	if err := sqlDB.Close(); err != nil {
		lg.Error("database close error", "error", err)
	}
	lg.Info("sweep worker shutdown complete")
}

func init() {
	workerCmd.AddCommand(sweepWorkerCmd)
}
