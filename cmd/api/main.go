package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docvault.org/internal/access"
	"docvault.org/internal/activity"
	"docvault.org/internal/blob"
	"docvault.org/internal/config"
	"docvault.org/internal/docstore"
	"docvault.org/internal/httpapi"
	"docvault.org/internal/identity"
	"docvault.org/internal/obs"
	"docvault.org/internal/registry"
	"docvault.org/internal/session"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Postgres when a DSN is configured, in-memory otherwise.
	var (
		db       *sql.DB
		userSt   identity.Store
		docStore docstore.Store
	)
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		userSt = identity.NewPGStore(db)
		docStore = docstore.NewPGStore(db)
	} else {
		userSt = identity.NewInMemory()
		docStore = docstore.NewInMemory()
	}

	users, err := identity.NewService(userSt)
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}

	blobs, err := blob.NewFS(cfg.Blob.Dir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	secret := cfg.Session.Secret
	if secret == "" {
		// Ephemeral secret for dev runs; tokens do not survive a restart.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("generate session secret: %v", err)
		}
		secret = hex.EncodeToString(buf)
		log.Println("session.secret not set, using an ephemeral secret")
	}
	sessions, err := session.NewManager(secret, cfg.Session.Issuer, cfg.Session.TokenTTL())
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}

	feed := activity.New()
	reg, err := registry.NewService(users, docStore, blobs, access.NewEvaluator(users, docStore), feed)
	if err != nil {
		log.Fatalf("registry service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, httpapi.Options{
		Version:      version,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateBurst:    cfg.Server.RateBurst,
		RatePerSec:   cfg.Server.RatePerSec,
	}, users, reg, sessions, feed)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Printf("Starting docvault-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
