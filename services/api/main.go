package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamber/internal/auth"
	"github.com/chamber/internal/config"
	"github.com/chamber/internal/handler"
	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/media"
	"github.com/chamber/internal/middleware"
	"github.com/chamber/internal/push"
	"github.com/chamber/internal/repository"
	"github.com/chamber/internal/startup"
	"github.com/chamber/internal/ws"
	"github.com/chamber/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	presenceStore := startup.ConnectPresenceWithRetry(cfg.RedisURL, 30*time.Second)
	defer presenceStore.Close()

	// Nobody is connected after a restart; stale flags would inflate counts.
	resetCtx, resetCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := presenceStore.Reset(resetCtx); err != nil {
		logger.Errorf("reset presence: %v", err)
	}
	resetCancel()

	blobStore, err := media.NewDiskStore(cfg.MediaDir)
	if err != nil {
		logger.Errorf("media store: %v", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(pool)
	chamberRepo := repository.NewChamberRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)

	vapidKeys := &push.VAPIDKeys{PublicKey: cfg.VAPIDPublicKey, PrivateKey: cfg.VAPIDPrivateKey}
	if vapidKeys.PublicKey == "" || vapidKeys.PrivateKey == "" {
		vapidKeys, err = push.EnsureVAPIDKeys("")
		if err != nil {
			logger.Errorf("vapid keys: %v (pushes disabled)", err)
			vapidKeys = nil
		}
	}
	var notifier ws.PushNotifier
	vapidPublic := ""
	if vapidKeys != nil {
		notifier = push.NewNotifier(subRepo, vapidKeys, cfg.VAPIDSubject)
		vapidPublic = vapidKeys.PublicKey
	}

	verifier := auth.NewVerifier(cfg.JWTSecret, userRepo)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(msgRepo, chamberRepo, presenceStore, blobStore, cfg.MaxWSConnections, cfg.WSMaxMessageSize, notifier)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	chamberH := handler.NewChamberHandler(chamberRepo, userRepo, msgRepo, hub)
	userH := handler.NewUserHandler(userRepo, verifier)
	mediaH := handler.NewMediaHandler(blobStore)
	pushH := handler.NewPushHandler(subRepo, vapidPublic)
	wsH := handler.NewWSHandler(hub, verifier, chamberRepo, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Do not compress WebSocket: a wrapped ResponseWriter without
	// http.Hijacker makes the upgrade fail with 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/push/key", pushH.PublicKey)
	r.Get("/api/media/{kind}/{filename}", mediaH.Serve)
	r.Post("/api/users", userH.Create)

	// The websocket route authenticates inside the handler: the membership
	// gate has to run after the upgrade to emit its close code.
	r.Get("/ws/chambers/{chamberID}", wsH.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier))
		r.Post("/api/chambers", chamberH.Create)
		r.Get("/api/chambers/{chamberID}", chamberH.Get)
		r.Post("/api/chambers/{chamberID}/members", chamberH.AddMembers)
		r.Get("/api/chambers/{chamberID}/members", chamberH.Members)
		r.Get("/api/chambers/{chamberID}/messages", chamberH.History)
		r.Post("/api/push/subscriptions", pushH.Subscribe)
		r.Delete("/api/push/subscriptions", pushH.Unsubscribe)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chamber"
		password = "chamber_secret"
		database = "chamber"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
