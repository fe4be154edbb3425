package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"steppingStonesAPI/handlers"
	"steppingStonesAPI/middleware"
	"steppingStonesAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool         *pgxpool.Pool
	userService    *services.UserService
	stepService    *services.StepService
	journalService *services.JournalService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	userService = services.NewUserService(dbPool)
	stepService = services.NewStepService(dbPool, userService)
	journalService = services.NewJournalService(dbPool)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService, stepService, journalService)
	stepHandler := handlers.NewStepHandler(stepService)
	journalHandler := handlers.NewJournalHandler(journalService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "stepping-stones-api"}`))
	}).Methods("GET")

	// Public read-only view for accountability partners.
	r.HandleFunc("/shared/{token}", stepHandler.GetSharedStep).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuthMiddleware)

	protected.HandleFunc("/dashboard", userHandler.Dashboard).Methods("GET")
	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/target/{action}", userHandler.AdjustTarget).Methods("POST")
	protected.HandleFunc("/user/theme", userHandler.ToggleTheme).Methods("POST")
	protected.HandleFunc("/user/rest-days", userHandler.SetRestDays).Methods("PUT")
	protected.HandleFunc("/user/rest-days/custom", userHandler.ListCustomRestDays).Methods("GET")
	protected.HandleFunc("/user/rest-days/custom", userHandler.AddCustomRestDay).Methods("POST")
	protected.HandleFunc("/user/rest-days/custom/{id}", userHandler.DeleteCustomRestDay).Methods("DELETE")

	protected.HandleFunc("/steps", stepHandler.ListSteps).Methods("GET")
	protected.HandleFunc("/steps", stepHandler.CreateStep).Methods("POST")
	protected.HandleFunc("/steps/{id}", stepHandler.GetStep).Methods("GET")
	protected.HandleFunc("/steps/{id}", stepHandler.UpdateStep).Methods("PUT")
	protected.HandleFunc("/steps/{id}", stepHandler.DeleteStep).Methods("DELETE")
	protected.HandleFunc("/steps/{id}/archive", stepHandler.ArchiveStep).Methods("POST")
	protected.HandleFunc("/steps/{id}/log", stepHandler.UpsertLog).Methods("POST")
	protected.HandleFunc("/steps/{id}/overview", stepHandler.UpdateOverview).Methods("PUT")
	protected.HandleFunc("/steps/{id}/subtasks", stepHandler.AddSubTask).Methods("POST")
	protected.HandleFunc("/steps/{id}/share", stepHandler.ShareStep).Methods("POST")
	protected.HandleFunc("/subtasks/{id}/toggle", stepHandler.ToggleSubTask).Methods("POST")
	protected.HandleFunc("/subtasks/{id}", stepHandler.DeleteSubTask).Methods("DELETE")

	protected.HandleFunc("/journal", journalHandler.UpsertToday).Methods("POST")
	protected.HandleFunc("/journal/history", journalHandler.History).Methods("GET")
	protected.HandleFunc("/journal/{id}", journalHandler.EditEntry).Methods("PUT")

	protected.HandleFunc("/heatmap", stepHandler.GetHeatmap).Methods("GET")
	protected.HandleFunc("/calendar", stepHandler.GetTimeline).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
