package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/jobs"
	"github.com/iliyamo/restaurant-table-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-table-reservation/internal/logging"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/router"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log := logging.FromStrings(cfg.LogLevel, cfg.LogFormat)

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "create missing tables before serving")
	rootCmd.AddCommand(serveCmd)
}

// stores bundles the persistence chosen by STORE_DRIVER.
type stores struct {
	db           *sql.DB // nil for the memory driver
	reservations ledger.Store
	users        handler.UserStore
	tokens       handler.TokenStore
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return stores{
			reservations: repository.NewMemoryReservationStore(),
			users:        repository.NewMemoryUserRepo(),
			tokens:       repository.NewMemoryTokenRepo(),
		}, nil
	}
	db, err := database.Open(ctx, dbOptions(cfg))
	if err != nil {
		return stores{}, err
	}
	return stores{
		db:           db,
		reservations: repository.NewReservationRepo(db, cfg.StoreDriver),
		users:        repository.NewUserRepo(db, cfg.StoreDriver),
		tokens:       repository.NewTokenRepo(db, cfg.StoreDriver),
	}, nil
}

func dbOptions(cfg config.Config) database.Options {
	return database.Options{
		Driver:  cfg.StoreDriver,
		User:    cfg.DBUser,
		Pass:    cfg.DBPass,
		Host:    cfg.DBHost,
		Port:    cfg.DBPort,
		Name:    cfg.DBName,
		SSLMode: cfg.DBSSLMode,
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
		if serveMigrate {
			if err := database.Migrate(ctx, st.db, cfg.StoreDriver); err != nil {
				return err
			}
		}
	}

	tables, err := config.LoadTables(cfg.TablesFile)
	if err != nil {
		return err
	}
	l, err := ledger.New(ctx, tables, st.reservations,
		ledger.WithLocation(cfg.Location),
		ledger.WithPastCheck(!cfg.AllowPastBookings),
		ledger.WithLogger(log),
	)
	if err != nil {
		return err
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		// Cache and rate limiter degrade to pass-through and in-process.
		log.Warn("redis unavailable", "err", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewAMQPPublisher(cfg.RabbitMQURL)
	}

	authH := handler.NewAuthHandler(cfg, st.users, st.tokens, log)
	tableH := handler.NewTableHandler(l, log)
	resH := handler.NewReservationHandler(l, events, log)
	healthH := &handler.HealthHandler{Ledger: l}
	if st.db != nil {
		healthH.DB = st.db
	}

	e := router.New(log, cfg.ClientURL)
	router.RegisterRoutes(e, healthH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterTables(e, tableH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))
	router.RegisterReservations(e, resH, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	sched, err := jobs.Schedule(cfg.PurgeSchedule, jobs.NewPurgeJob(l, cfg.PurgeRetention, log), log)
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "tables", len(tables))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			sched.Stop(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	sched.Stop(shutdownCtx)
	resH.Drain(shutdownCtx)
	log.Info("stopped")
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
