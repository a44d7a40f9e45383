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

	"runClubAPI/handlers"
	"runClubAPI/internal/db"
	"runClubAPI/internal/strava"
	"runClubAPI/middleware"
	"runClubAPI/services"
)

var (
	dbPool             *pgxpool.Pool
	stravaClient       *strava.Client
	userService        *services.UserService
	statsService       *services.StatsService
	syncService        *services.SyncService
	challengeService   *services.ChallengeService
	leaderboardService *services.LeaderboardService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clientID := os.Getenv("STRAVA_CLIENT_ID")
	if clientID == "" {
		log.Fatal("STRAVA_CLIENT_ID environment variable is not set")
	}
	clientSecret := os.Getenv("STRAVA_CLIENT_SECRET")
	if clientSecret == "" {
		log.Fatal("STRAVA_CLIENT_SECRET environment variable is not set")
	}
	redirectURI := os.Getenv("STRAVA_REDIRECT_URI")
	if redirectURI == "" {
		log.Fatal("STRAVA_REDIRECT_URI environment variable is not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	dbPool, err = db.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal("Failed to run schema migration:", err)
	}

	log.Println("Successfully connected to database")

	stravaClient = strava.NewClient(clientID, clientSecret, redirectURI)

	userService = services.NewUserService(dbPool, stravaClient)
	statsService = services.NewStatsService(dbPool)
	syncService = services.NewSyncService(userService, statsService, stravaClient)
	challengeService = services.NewChallengeService(dbPool, userService, stravaClient)
	leaderboardService = services.NewLeaderboardService(dbPool, userService, statsService)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	oauthHandler := handlers.NewOAuthHandler(stravaClient, userService)
	userHandler := handlers.NewUserHandler(userService)
	syncHandler := handlers.NewSyncHandler(syncService, challengeService, leaderboardService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "runClub-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/strava/authorize-url", oauthHandler.GetAuthorizeURL).Methods("GET")
	api.HandleFunc("/auth/strava/callback", oauthHandler.Callback).Methods("POST")

	api.HandleFunc("/users/{id}", userHandler.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}/socials", userHandler.UpdateSocials).Methods("PUT")
	api.HandleFunc("/users/{id}/stats", syncHandler.GetUserStats).Methods("GET")
	api.HandleFunc("/runners/{slug}", userHandler.GetUserBySlug).Methods("GET")

	api.HandleFunc("/sync/user/{id}", syncHandler.SyncUser).Methods("POST")

	api.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	api.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	api.HandleFunc("/challenges/{id}", challengeHandler.GetChallenge).Methods("GET")
	api.HandleFunc("/challenges/{id}/join", challengeHandler.JoinChallenge).Methods("POST")
	api.HandleFunc("/challenges/{id}/sync", challengeHandler.SyncParticipant).Methods("POST")
	api.HandleFunc("/challenges/{id}/sync-all", challengeHandler.SyncAllParticipants).Methods("POST")
	api.HandleFunc("/challenges/{id}/leaderboard", challengeHandler.GetLeaderboard).Methods("GET")
	api.HandleFunc("/challenges/{id}/progress/{userId}", challengeHandler.GetProgress).Methods("GET")

	api.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")

	// Cron-only entry point, guarded by the shared secret header.
	scheduler := api.PathPrefix("/sync/scheduler").Subrouter()
	scheduler.Use(middleware.CronSecretMiddleware)
	scheduler.HandleFunc("", syncHandler.Scheduler).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Cron-Secret"}),
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
		WriteTimeout: 10 * time.Minute,
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
