package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"staffly.org/internal/auth"
	"staffly.org/internal/config"
	"staffly.org/internal/httpapi"
	"staffly.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		log.Fatal("missing STAFFLY_PG_DSN: the credential store is required")
	}

	authSvc, err := auth.NewService(auth.NewPGStore(db), cfg.AccessSecret, cfg.RefreshSecret)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	csrf, err := auth.NewCSRF(cfg.CSRFSecret)
	if err != nil {
		log.Fatalf("csrf: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth: authSvc,
		CSRF: csrf,
		Cookies: httpapi.CookieConfig{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure(),
		},
		ReadyProbe:      httpapi.ReadyProbe{DB: db},
		Version:         version,
		AllowedOrigins:  cfg.AllowedOrigins,
		LoginRateBurst:  cfg.LoginRateBurst,
		LoginRatePerSec: cfg.LoginRatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting staffly-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
