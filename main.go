package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pong-arena/handlers"
	"pong-arena/middleware"
	"pong-arena/services"
	"pong-arena/utils"
	"pong-arena/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	store := services.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// the archive is optional; without R2 credentials matches live in the database only
	var archive workers.Archiver
	if cfg.R2.Enabled() {
		a, err := utils.NewArchive(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archive = a
	} else {
		log.Println("⚠️  R2 not configured, match archive disabled")
	}

	recorder := workers.NewRecorder(store, archive, 4096)
	recorder.Start(ctx)

	engine := services.NewEngine(cfg.EngineConfig(), nil, recorder, store)
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[Engine] stopped: %v", err)
		}
	}()

	sched, err := engine.StartMaintenance(ctx, cfg.SweepEvery, cfg.GaugeEvery)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	hub := handlers.NewHub()
	go hub.Run(ctx, engine.Events())

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		// sockets and streams stay open for the whole game
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws" || c.Path() == "/events" || c.Path() == "/health"
		},
	}))

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupStatusRoutes(app, engine, hub)

	secured := app.Group("/", middleware.UserContextMiddleware())
	handlers.SetupGatewayRoutes(secured, handlers.NewGateway(engine, hub))
	handlers.SetupLobbyRoutes(secured, engine, hub)
	handlers.SetupGameRoutes(secured, engine)
	handlers.SetupProgressionRoutes(secured, store)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Engine ticking at %d Hz, first to %d", cfg.TickRate, cfg.ScoreLimit)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	<-engineDone
	<-recorder.Done()
	log.Println("✅ Recorder flushed, bye")
}
