package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cOsMiCTr/famhub-backend/pkg/config"
	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/handlers"
	customMiddleware "github.com/cOsMiCTr/famhub-backend/pkg/middleware"
	"github.com/cOsMiCTr/famhub-backend/pkg/services"
	"github.com/cOsMiCTr/famhub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler is the serverless entry point: one Chi router handles every
// API endpoint. Long-running deployments use cmd/server instead, which
// additionally hosts the expiry scheduler.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	db := database.GetDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	// connection lifetime is managed by the pool, never closed here

	router := NewRouter(cfg, db)
	router.ServeHTTP(w, r)
}

// NewRouter builds the fully wired API router.
func NewRouter(cfg *config.Config, db database.DatabaseInterface) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)
	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	router.Use(customMiddleware.CORS(cfg))

	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.ContentTypeJSON)
	router.Use(customMiddleware.MaxBodySize(1 << 20))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// services
	resolver := services.NewIdentityResolver(db)
	notifier := services.NewDBNotifier(db)
	connectionService := services.NewConnectionService(db, resolver, notifier)
	linkedService := services.NewLinkedDataService(db)

	// handlers
	authHandler := handlers.NewAuthHandler(cfg, db)
	householdHandler := handlers.NewHouseholdHandler(cfg, db)
	personHandler := handlers.NewPersonHandler(cfg, db, resolver)
	connectionHandler := handlers.NewConnectionHandler(cfg, connectionService)
	linkedHandler := handlers.NewLinkedDataHandler(cfg, linkedService)
	financeHandler := handlers.NewFinanceHandler(cfg, db)
	notificationHandler := handlers.NewNotificationHandler(cfg, db)

	router.Get("/", authHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})

		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, map[string]interface{}{
				"jwt_secret":            cfg.JWTSecret != "",
				"postgres_dsn":          cfg.PostgresDSN != "",
				"use_memory_db":         cfg.UseMemoryDB,
				"expiry_sweep_interval": cfg.ExpirySweepInterval.String(),
			})
		})
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", authHandler.HealthCheck)

		// public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/households", func(r chi.Router) {
				r.Get("/", householdHandler.ListMyHouseholds)
				r.Post("/", householdHandler.CreateHousehold)

				r.Route("/{householdID}", func(r chi.Router) {
					r.Get("/", householdHandler.GetHousehold)
					r.Get("/members", householdHandler.ListMembers)
					r.Post("/members", householdHandler.AddMember)

					r.Get("/persons", personHandler.ListPersons)
					r.Post("/persons", personHandler.CreatePerson)

					r.Get("/expenses", financeHandler.ListExpenses)
					r.Post("/expenses", financeHandler.CreateExpense)
					r.Get("/income", financeHandler.ListIncome)
					r.Post("/income", financeHandler.CreateIncome)
					r.Get("/assets", financeHandler.ListAssets)
					r.Post("/assets", financeHandler.CreateAsset)
				})
			})

			r.Route("/persons/{personID}", func(r chi.Router) {
				r.Get("/", personHandler.GetPerson)
				r.Put("/", personHandler.UpdatePerson)
				r.Delete("/", personHandler.DeletePerson)
				r.Post("/invite", connectionHandler.SendInvitation)
			})

			r.Post("/expenses/{expenseID}/link/{personID}", financeHandler.LinkExpense)
			r.Post("/assets/{assetID}/ownership", financeHandler.AddAssetOwnership)

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", connectionHandler.ListMyConnections)

				r.Route("/{connectionID}", func(r chi.Router) {
					r.Post("/accept", connectionHandler.AcceptInvitation)
					r.Post("/reject", connectionHandler.RejectInvitation)
					r.Post("/revoke", connectionHandler.RevokeConnection)
					r.Post("/disconnect", connectionHandler.DisconnectConnection)

					r.Route("/linked-data", func(r chi.Router) {
						r.Get("/expenses", linkedHandler.GetLinkedExpenses)
						r.Get("/income", linkedHandler.GetLinkedIncome)
						r.Get("/assets", linkedHandler.GetLinkedAssets)
						r.Get("/summary", linkedHandler.GetLinkedSummary)
					})
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.ListNotifications)
				r.Post("/{notificationID}/read", notificationHandler.MarkRead)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
