package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"santiye/internal/config"
	"santiye/internal/database"
	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/events"
	"santiye/internal/middleware"
	"santiye/internal/modules/allowlist"
	"santiye/internal/modules/contract"
	"santiye/internal/modules/deduction"
	"santiye/internal/modules/payment"
	"santiye/internal/modules/project"
	"santiye/internal/modules/report"
	"santiye/internal/modules/risk"
	"santiye/internal/modules/stream"
	"santiye/internal/modules/tender"
	jwtsvc "santiye/internal/pkg/jwt"
	"santiye/internal/selection"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	bus := events.NewBus()

	store, err := docstore.Open(db, bus, domain.Rules())
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	bus.Subscribe(events.EventPermissionError, func(payload any) {
		if pe, ok := payload.(*events.PermissionError); ok {
			auth, _ := pe.Auth.(docstore.AuthContext)
			log.Printf("permission denied path=%s operation=%s user=%s", pe.Path, pe.Operation, auth.UserID)
		}
	})

	var storage selection.Storage = selection.NewMemoryStorage()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Printf("redis unavailable, selection kept in memory: %v", err)
		} else {
			storage = selection.NewRedisStorage(client)
		}
	}

	manager := selection.NewManager(store, bus, storage)
	defer manager.Close()

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	allowlistService := allowlist.NewService(store, j)
	allowlistHandler := allowlist.NewHandler(allowlistService)

	projectHandler := project.NewHandler(manager)
	tenderHandler := tender.NewHandler(tender.NewService(store))
	contractHandler := contract.NewHandler(contract.NewService(store))
	paymentHandler := payment.NewHandler(payment.NewService(store))
	deductionHandler := deduction.NewHandler(deduction.NewService(store))
	riskHandler := risk.NewHandler(risk.NewClient(cfg.RiskAPIURL, cfg.RiskAPIKey))

	gateway := stream.NewGateway(store)
	defer gateway.Close()
	streamHandler := stream.NewHandler(gateway, j)

	r := gin.Default()
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		allowlistHandler.RegisterPublicRoutes(v1)
		streamHandler.RegisterRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			allowlistHandler.RegisterProtectedRoutes(protected)
			projectHandler.RegisterRoutes(protected)
			tenderHandler.RegisterRoutes(protected)
			contractHandler.RegisterRoutes(protected)
			paymentHandler.RegisterRoutes(protected)
			deductionHandler.RegisterRoutes(protected)
			riskHandler.RegisterRoutes(protected)

			// Reporting runs raw aggregates and needs Postgres.
			if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
				pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
				if err != nil {
					log.Printf("reporting disabled: %v", err)
				} else {
					defer pool.Close()
					reportHandler := report.NewHandler(report.NewService(pool))
					reportHandler.RegisterRoutes(protected)
				}
			}

			// admin
			admin := protected.Group("/")
			admin.Use(middleware.AdminOnly())
			{
				allowlistHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
