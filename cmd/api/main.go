package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskmanager/taskmanager-go/internal/config"
	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/handler"
	"github.com/taskmanager/taskmanager-go/internal/logging"
	"github.com/taskmanager/taskmanager-go/internal/repository"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

type stores struct {
	users  service.UserRepository
	tokens service.TokenRepository
	tasks  service.TaskRepository
	db     *sql.DB
}

func main() {
	migrate := flag.Bool("migrate", false, "apply the database schema and exit")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	if envErr != nil {
		log.Warn("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	if *migrate {
		if st.db == nil {
			log.Error("migrations require the mysql store driver")
			os.Exit(1)
		}
		if err := repository.Migrate(ctx, st.db); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		return
	}

	hasher, err := crypto.NewPasswordHasher(crypto.DefaultHashParams())
	if err != nil {
		log.Error("failed to initialise password hasher", "error", err)
		os.Exit(1)
	}

	tokens := service.NewTokenService(st.tokens, crypto.NewTokenSigner(cfg.JWTSecret), cfg.TokenExpiry, log)
	router := handler.NewRouter(ctx, handler.RouterConfig{
		Auth:          service.NewAuthService(st.users, tokens, hasher, log),
		Tokens:        tokens,
		Tasks:         service.NewTaskService(st.tasks, log),
		Log:           log,
		ExposeErrors:  !cfg.Production(),
		AuthRateRPS:   cfg.AuthRateRPS,
		AuthRateBurst: cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "driver", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return stores{
			users:  repository.NewMemoryUserRepository(),
			tokens: repository.NewMemoryTokenRepository(),
			tasks:  repository.NewMemoryTaskRepository(),
		}, nil
	}

	db, err := repository.NewDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:  repository.NewUserRepository(db),
		tokens: repository.NewTokenRepository(db),
		tasks:  repository.NewTaskRepository(db),
		db:     db,
	}, nil
}
