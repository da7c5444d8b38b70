package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taskboard/config"
	"taskboard/database"
	"taskboard/firebase"
	"taskboard/handlers"
	"taskboard/services"
	"taskboard/session"
	"taskboard/utilities"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded, using the process environment")
	}

	if err := run(); err != nil {
		utilities.LogError(err, "server stopped")
		utilities.CloseLogger()
		os.Exit(1)
	}
	utilities.CloseLogger()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := utilities.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	if !cfg.IdentityEnabled() {
		return errors.New("FIREBASE_CREDENTIALS_PATH is required to verify bearer tokens")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := firebase.NewApp(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID)
	if err != nil {
		return err
	}
	idp, err := firebase.NewAuthenticator(ctx, app, cfg.FirebaseAPIKey)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, func() (database.Store, error) {
		client, err := firebase.NewFirestoreClient(ctx, app)
		if err != nil {
			return nil, err
		}
		return firebase.NewFirestoreStore(client), nil
	})
	if err != nil {
		return err
	}
	defer store.Close()

	var cache services.ActorCache
	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.IdentityCacheTTL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		cache = redisStore
		utilities.LogInfo("Identity cache enabled (ttl %s)", cfg.IdentityCacheTTL)
	}

	h := handlers.New(services.NewBoardService(store), services.NewAccounts(store, idp, cache), store)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(h, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utilities.LogInfo("Server listening on port %s (store: %s)", cfg.Port, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utilities.LogInfo("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured backend. Firestore shares the Firebase
// app, so its constructor is passed in.
func openStore(ctx context.Context, cfg config.Config, newFirestore func() (database.Store, error)) (database.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return database.NewPostgresStore(db), nil
	case config.BackendMongo:
		return database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.BackendFirestore:
		return newFirestore()
	default:
		utilities.LogInfo("Using the in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil
	}
}
