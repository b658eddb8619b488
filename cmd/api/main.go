package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tutorhub/internal/api"
	"tutorhub/internal/attendance"
	"tutorhub/internal/auth"
	"tutorhub/internal/config"
	"tutorhub/internal/httpmiddleware"
	"tutorhub/internal/metrics"
	"tutorhub/internal/principal"
	"tutorhub/internal/queue"
	"tutorhub/internal/scores"
	"tutorhub/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// backends are the stores behind the ledgers.
type backends struct {
	principals principal.Store
	attendance attendance.Store
	scores     scores.Store
	health     map[string]api.HealthCheck
	close      func()
}

func openBackends(cfg config.App) (*backends, error) {
	if cfg.StoreBackend == "memory" {
		return openMemory(cfg)
	}

	db, err := store.NewDB(cfg.DatabaseURL, cfg.StoreTimeout)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	if db == nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if cfg.AutoMigrate && err == nil {
		if err := db.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Println("schema applied")
	}
	return &backends{
		principals: principal.NewRepository(db),
		attendance: attendance.NewRepository(db),
		scores:     scores.NewRepository(db),
		health:     map[string]api.HealthCheck{"db": db.Healthy},
		close:      func() { _ = db.Close() },
	}, nil
}

func openMemory(cfg config.App) (*backends, error) {
	ps := principal.NewMemoryStore()
	if cfg.SeedFile != "" {
		f, err := os.Open(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("open seed: %w", err)
		}
		students, teachers, err := ps.LoadSeed(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("load seed %s: %w", cfg.SeedFile, err)
		}
		log.Printf("seeded %d students and %d teachers from %s", students, teachers, cfg.SeedFile)
	}
	log.Println("using in-memory stores; data is lost on restart")
	return &backends{
		principals: ps,
		attendance: attendance.NewMemoryStore(),
		scores:     scores.NewMemoryStore(),
		health:     map[string]api.HealthCheck{},
		close:      func() {},
	}, nil
}

func runHTTP(cfg config.App) error {
	be, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *store.Redis
	if cfg.RateLimitBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		be.health["redis"] = redisClient.Healthy
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, "", cfg.RateLimitPerMin)
	}

	var events queue.Publisher
	switch cfg.QueueBackend {
	case "redis":
		events = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	case "memory":
		q := queue.NewInMemory(256)
		go func() { _ = queue.Drain(ctx, q, queue.LogEvent) }()
		events = q
	default:
		log.Println("ledger events disabled (QUEUE_BACKEND not memory or redis)")
	}

	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.TokenTTL)
	srv := &api.Server{
		Principals: be.principals,
		Login:      auth.NewService(be.principals, issuer),
		Verifier:   issuer,
		Attendance: attendance.NewLedger(be.attendance, be.principals, cfg.StoreTimeout),
		Scores:     scores.NewLedger(be.scores, be.principals, cfg.StoreTimeout, cfg.PassMark),
		Health:     be.health,
		Events:     events,
	}

	r := srv.Router(securityHeaders(), httpmiddleware.Middleware(limiter))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.StoreTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Started ledger writes run detached from the request, so give them the store timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
