package main

import (
	"log"
	"net/http"
	"time"

	"hotel_pms_backend/internal/config"
	"hotel_pms_backend/internal/database"
	"hotel_pms_backend/internal/provider"
	routerpkg "hotel_pms_backend/internal/router"
	"hotel_pms_backend/internal/services"
	"hotel_pms_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize Logger
	utils.InitLogger()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Initialize Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		utils.LogError(err, "Failed to connect to database")
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		utils.LogError(err, "Failed to run migrations")
		log.Fatalf("Failed to run migrations: %v", err)
	}
	utils.LogInfo("Database initialized", map[string]interface{}{"name": cfg.Database.Name})

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Setup all application routes
	push := provider.NewClient(cfg.Provider)
	authService, paymentService := routerpkg.Setup(engine, db, cfg, push)

	if err := authService.EnsureDefaultAdmin(cfg.Admin.Username, cfg.Admin.Password); err != nil {
		utils.LogError(err, "Failed to seed default admin")
		log.Fatalf("Failed to seed default admin: %v", err)
	}

	go runPendingSweep(paymentService, cfg.Billing.SweepInterval)

	utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.App.Port, "env": cfg.App.Env})
	if err := engine.Run(":" + cfg.App.Port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}

// runPendingSweep periodically fails mobile-money payments stuck pending past
// the configured timeout, so their bills can be settled another way.
func runPendingSweep(paymentService services.PaymentService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		swept, err := paymentService.SweepStalePending()
		if err != nil {
			utils.LogError(err, "Pending payment sweep failed")
			continue
		}
		if swept > 0 {
			utils.LogInfo("Swept stale pending payments", map[string]interface{}{"count": swept})
		}
	}
}
