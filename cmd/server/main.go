package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HanTheDev/policyguard/internal/admin"
	"github.com/HanTheDev/policyguard/internal/anomaly"
	"github.com/HanTheDev/policyguard/internal/auth"
	"github.com/HanTheDev/policyguard/internal/behaviorlog"
	"github.com/HanTheDev/policyguard/internal/claims"
	"github.com/HanTheDev/policyguard/internal/config"
	"github.com/HanTheDev/policyguard/internal/db"
	"github.com/HanTheDev/policyguard/internal/policy"
	"github.com/HanTheDev/policyguard/internal/profile"
	"github.com/HanTheDev/policyguard/internal/ratelimit"
	"github.com/HanTheDev/policyguard/internal/tracker"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize database
	database, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal("Failed to prepare database:", err)
	}

	// Initialize rate limiter
	limiter, err := ratelimit.NewRateLimiter(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to initialize rate limiter:", err)
	}
	defer limiter.Close()

	// Anomaly model, with verdicts cached in Redis
	scorer, err := anomaly.NewCachedScorer(anomaly.Load(ctx, cfg.ModelURL), cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to initialize score cache:", err)
	}
	defer scorer.Close()

	// Behavior tracking
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := tracker.NewMetrics(registry)

	behaviorLog := behaviorlog.New(cfg.BehaviorLogPath)
	sessions := tracker.NewRegistry(cfg.Tracker.FlushThreshold)
	aggregator := tracker.NewAggregator(behaviorLog, metrics)
	interceptor := tracker.NewInterceptor(sessions, aggregator, auth.NewResolver(cfg.JWTSecret), metrics)
	sweeper := tracker.NewSweeper(sessions, aggregator, metrics, cfg.Tracker.SweepInterval, cfg.Tracker.SessionTTL)

	// Initialize router
	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	authHandler := auth.NewHandler(database, limiter, cfg.RateLimit.AuthPerHour, cfg.JWTSecret, cfg.JWTExpiry)
	authHandler.RegisterRoutes(router)

	// Customer routes
	policy.NewHandler(database, cfg.JWTSecret).RegisterRoutes(router)
	claims.NewHandler(database, cfg.JWTSecret).RegisterRoutes(router)
	profile.NewHandler(database, cfg.JWTSecret).RegisterRoutes(router)

	// Back-office routes
	admin.NewDashboardHandler(database).RegisterRoutes(router)

	// Behavior dashboard routes
	adminHandler := admin.NewAdminHandler(behaviorLog, scorer)
	adminHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           interceptor.Middleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		log.Printf("Auth API available at /auth/*")
		log.Printf("Customer API available at /apply/*, /claims/*, /profile/*")
		log.Printf("Admin API available at /admin/*")
		log.Printf("Behavior logs available at /log/*")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server failed:", err)
	}
	log.Println("Server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "1.0.0",
	})
}
