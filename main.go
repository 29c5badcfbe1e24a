package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoclock/config"
	"geoclock/database"
	"geoclock/services"
	"geoclock/telegram"
	"geoclock/utils"
	"geoclock/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	// Initialize project databases
	manager, err := database.Connect(cfg.DatabaseURLs)
	if err != nil {
		logrus.Fatal("Failed to connect to databases: ", err)
	}
	defer manager.Disconnect()

	// Initialize Redis (optional chat-context cache)
	redisClient := initRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := clockwork.NewRealClock()

	// Core services
	registry := services.NewLiveRegistry(clock)
	sessions := services.NewSessionService()
	locationService := services.NewLocationService(services.NewManagerLocationStore(manager), registry, sessions, redisClient, clock)
	attendanceService := services.NewAttendanceService(manager, clock)
	validator := services.NewLocationValidator(clock)
	linker := utils.NewWebAppLinker(cfg.JWTSecret, cfg.WebAppURL)

	// Telegram transport
	bot, err := telegram.NewBot(cfg.TelegramBotToken, locationService, sessions, manager, linker, cfg.DefaultTimezone)
	if err != nil {
		logrus.Fatal("Failed to initialize Telegram bot: ", err)
	}

	notifier := services.NewNotificationService(bot, manager, cfg.NotificationsEnabled)

	// Workers
	sweeper := workers.NewSweeperWorker(registry, manager, clock)
	monitor := workers.NewMonitorWorker(manager, attendanceService, validator, attendanceService, notifier, clock, workers.MonitorWorkerConfig{
		CheckInterval:        time.Duration(cfg.CheckIntervalMinutes) * time.Minute,
		MaxLocationAge:       time.Duration(cfg.MaxLocationAgeMinutes) * time.Minute,
		Enabled:              cfg.MonitorEnabled,
		NotificationsEnabled: cfg.NotificationsEnabled,
		DefaultTimezone:      cfg.DefaultTimezone,
	})

	bot.Start()
	if err := sweeper.Start(); err != nil {
		logrus.Fatal("Failed to start sweeper: ", err)
	}
	if err := monitor.Start(); err != nil {
		logrus.Fatal("Failed to start location monitor: ", err)
	}

	// Operational HTTP server
	router := setupRouter(manager, monitor, sweeper, registry)
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("🚀 Geoclock enforcer starting on port ", cfg.Port)
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down...")

	bot.Stop()
	monitor.Stop()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("✅ Shutdown complete")
}

func setupRouter(manager *database.Manager, monitor *workers.MonitorWorker, sweeper *workers.SweeperWorker, registry *services.LiveRegistry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		status := manager.HealthCheck(c.Request.Context())

		healthy := true
		for _, s := range status {
			if s != "healthy" {
				healthy = false
			}
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"databases": status})
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"monitor":      monitor.GetStats(),
			"sweeper":      sweeper.GetStats(),
			"liveSessions": registry.Len(),
		})
	})

	return router
}

func initRedis(cfg *config.Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Warnf("Invalid Redis URL, chat-context cache disabled: %v", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.Warnf("Redis unreachable, chat-context cache disabled: %v", err)
		return nil
	}
	return client
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
