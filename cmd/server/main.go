package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/adlooper/signage-server/internal/auth"       // Bearer token resolution
	"github.com/adlooper/signage-server/internal/config"     // Internal config loader
	"github.com/adlooper/signage-server/internal/database"   // Database connection and schema
	"github.com/adlooper/signage-server/internal/handler"    // HTTP handlers
	"github.com/adlooper/signage-server/internal/queue"      // Broker consumer
	"github.com/adlooper/signage-server/internal/repository" // Data access layer
	"github.com/adlooper/signage-server/internal/router"     // Internal router setup
	queue_publisher "github.com/adlooper/signage-server/internal/service"
	"github.com/adlooper/signage-server/internal/storage" // Media file storage
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	// Open the database and make sure the schema exists before serving.
	db, err := database.Open(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.InitSchema(db, cfg.DBDriver); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Repositories over the shared connection pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	deviceTokens := repository.NewDeviceTokenRepo(db)
	devices := repository.NewDeviceRepo(db)
	media := repository.NewMediaRepo(db)
	groups := repository.NewMediaGroupRepo(db)
	schedules := repository.NewScheduleRepo(db)
	logs := repository.NewLogRepo(db)

	// Resolver turns bearer tokens into principals (users or devices).
	resolver := auth.NewResolver(cfg.JWTSecret, users, tokens, deviceTokens, devices)

	// File storage for uploaded media.
	files, err := storage.NewFileStore(cfg.MediaDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Event publisher; nil when RABBITMQ_URL is unset (events disabled).
	events := queue_publisher.NewPublisher(cfg.RabbitURL)
	if cfg.RabbitURL != "" {
		// Background consumer records device registrations to a log file.
		go func() {
			if err := queue.StartRegistrationConsumer(cfg.RabbitURL); err != nil {
				log.Printf("registration consumer stopped: %v", err)
			}
		}()
	}

	// Redis backs rate limiting and the content feed cache. A nil client
	// degrades to serving without either.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, resolver, tokens, deviceTokens, devices, events),
		Users:     handler.NewUserHandler(cfg, users),
		Media:     handler.NewMediaHandler(media, files, events),
		Groups:    handler.NewMediaGroupHandler(groups, media),
		Devices:   handler.NewDeviceHandler(devices, groups, schedules, logs),
		Schedules: handler.NewScheduleHandler(schedules, media, groups),
	}

	e := echo.New()           // Create Echo instance
	router.RegisterRoutes(e)  // Health check
	router.RegisterAPI(e, h, resolver, logs, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
