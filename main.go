package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"aegis/config"
	"aegis/controllers"
	"aegis/database"
	"aegis/middleware"
	"aegis/models"
	"aegis/platform"
	"aegis/repositories"
	"aegis/routes"
	"aegis/services"
	"aegis/utils"
	"aegis/websocket"
	"aegis/workers"
)

const version = "1.0.0"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	// Platform drivers
	provider, permissions, scheduler, granter, battery := buildPlatform(cfg)

	tracker := platform.NewAuthorizationTracker(permissions)
	if sim, ok := permissions.(*platform.SimulatedPermissions); ok {
		sim.Tracker = tracker
	}

	backgroundCtl := platform.NewBackgroundSessionController(platform.BackgroundConfig{
		Modes: cfg.BackgroundModes,
	}, scheduler)

	// Repositories
	alertRepo := repositories.NewAlertRepository(db)
	contactRepo := repositories.NewContactRepository(db)
	locationRepo := repositories.NewLocationRepository(db)
	flagRepo := repositories.NewFlagRepository(redisClient)

	// Delivery
	delivery, err := services.NewDeliveryService(
		cfg.FirebaseCredentials,
		cfg.TwilioAccountSID,
		cfg.TwilioAuthToken,
		cfg.TwilioPhoneNumber,
	)
	if err != nil {
		logrus.Fatal("Failed to initialize delivery service: ", err)
	}

	// WebSocket hub renders the lock-screen surface
	hub := websocket.NewHub()
	go hub.Run()

	// Core services
	engine := services.NewStreamEngine(provider, tracker)
	alertService := services.NewAlertService(alertRepo, contactRepo, delivery, battery)
	monitorService := services.NewMonitorService(
		cfg.UserID,
		tracker,
		backgroundCtl,
		engine,
		alertService,
		locationRepo,
		flagRepo,
		hub,
		battery,
		cfg.EscalationWindow,
	)
	contactService := services.NewContactService(contactRepo)

	// Resume-path worker consumes widget commands from the flag mailbox
	commandWorker := workers.NewCommandWorker(monitorService, flagRepo, time.Duration(cfg.CommandPollSecs)*time.Second)
	commandWorker.Start()
	defer commandWorker.Stop()

	cleanupWorker := workers.NewCleanupWorker(locationRepo, cfg.LocationRetention)
	cleanupWorker.Start()
	defer cleanupWorker.Stop()

	bridgeService := services.NewBridgeService(flagRepo, granter, commandWorker)

	// HTTP surface
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	errorHandler := middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger())

	router := routes.SetupRoutes(routes.Dependencies{
		Auth:         authMiddleware,
		ErrorHandler: errorHandler,
		Redis:        redisClient,
		Logger:       logrus.StandardLogger(),
		Monitor:      controllers.NewMonitorController(monitorService, alertService, locationRepo),
		Bridge:       controllers.NewBridgeController(bridgeService, commandWorker),
		Contact:      controllers.NewContactController(contactService),
		WebSocket:    controllers.NewWebSocketController(hub, authMiddleware),
		Health:       controllers.NewHealthController(database.GetClient(), redisClient, version),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("🚀 Aegis Safety Monitor starting on port ", cfg.Port)
		logrus.Info("📱 Surface endpoint: /ws")
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	// Monitoring keeps no state outside the stores; stopping flushes the
	// trail and releases the background session.
	if err := monitorService.Deactivate(ctx); err != nil {
		logrus.Warn("Failed to deactivate monitoring on shutdown: ", err)
	}
	hub.Shutdown()

	logrus.Info("✅ Server shutdown complete")
}

// buildPlatform selects the platform drivers. Only the simulated set exists
// today; a device build swaps in real drivers here.
func buildPlatform(cfg *config.Config) (
	platform.LocationProvider,
	platform.PermissionRequester,
	platform.BackgroundScheduler,
	platform.ForegroundGranter,
	platform.BatteryMonitor,
) {
	if cfg.PlatformProvider != "simulated" {
		logrus.Warnf("Unknown platform provider %q, using simulated", cfg.PlatformProvider)
	}

	permissions := &platform.SimulatedPermissions{
		GrantWhenUse: models.CapabilityForegroundOnly,
		GrantAlways:  models.CapabilityFullAccess,
		Delay:        100 * time.Millisecond,
	}

	return platform.NewSimulatedProvider(),
		permissions,
		&platform.SimulatedScheduler{},
		&platform.SimulatedGranter{},
		&platform.SimulatedBattery{Percent: 100}
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
