package main

import (
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"taskpulse-api/directory"
	"taskpulse-api/handlers"
	"taskpulse-api/middleware"
	"taskpulse-api/notify"
	"taskpulse-api/pkg/appenv"
	"taskpulse-api/pkg/events"
	"taskpulse-api/realtime"
	"taskpulse-api/repository"
	"taskpulse-api/timeline"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := appenv.LoadConfig()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	var db *sql.DB
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		log.Printf("DB connection failed: %v, retrying in 2s...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatal("Could not connect to database:", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Migration driver error:", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		log.Fatal("Migration init error:", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("Migration failed:", err)
	}

	notificationsRepo := repository.NewNotificationsRepository(db)
	auditsRepo := repository.NewAuditsRepository(db)
	commentsRepo := repository.NewCommentsRepository(db)
	membershipsRepo := repository.NewMembershipsRepository(db)

	// Realtime plumbing: registry, enabled drivers, bus, dispatcher. The
	// driver set is fixed for the process lifetime.
	registry := realtime.NewRegistry()
	var drivers []realtime.Driver
	if cfg.DriverEnabled(appenv.DriverSSE) {
		drivers = append(drivers, realtime.NewSSEDriver(registry))
	}
	if cfg.DriverEnabled(appenv.DriverWebSocket) {
		drivers = append(drivers, realtime.NewWSDriver(registry))
	}
	if cfg.DriverEnabled(appenv.DriverPusher) {
		drivers = append(drivers, realtime.NewPusherDriver(cfg.Pusher))
	}

	bus := events.NewBus()
	// Audit recording registers first so the trail is durable before any
	// notification push goes out for the same event.
	timeline.NewRecorder(auditsRepo).Register(bus)
	notify.NewDispatcher(membershipsRepo, notificationsRepo, drivers).Register(bus)

	timelineBuilder := timeline.NewBuilder(auditsRepo, commentsRepo)

	// Directory enrichment is optional: without DIRECTORY_URL listings carry
	// no actor names, without REDIS_ADDR every lookup hits the source.
	var directorySvc *directory.Service
	if cfg.DirectoryURL != "" {
		var kv directory.KV
		if cfg.RedisAddr != "" {
			kv = directory.NewRedisKV(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		}
		directorySvc = directory.NewService(directory.NewHTTPSource(cfg.DirectoryURL), kv)
	}

	if os.Getenv("GIN_MODE") == "release" || strings.ToLower(os.Getenv("APP_ENV")) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(gin.Recovery())

	trustedProxies := os.Getenv("TRUSTED_PROXIES")
	if trustedProxies != "" {
		parts := strings.Split(trustedProxies, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := r.SetTrustedProxies(parts); err != nil {
			log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
		}
	} else {
		// Default to loopback only; override via TRUSTED_PROXIES in production
		_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	}

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RateLimitMiddleware())

	notificationsHandler := handlers.NewNotificationsHandler(notificationsRepo, cfg.MaxPageSize)
	if directorySvc != nil {
		notificationsHandler = notificationsHandler.WithDirectory(directorySvc)
	}
	timelineHandler := handlers.NewTimelineHandler(timelineBuilder)

	r.GET("/health", handlers.HealthCheck)

	auth := r.Group("/", handlers.AuthMiddleware(cfg.JWTSecret))
	{
		if cfg.DriverEnabled(appenv.DriverSSE) {
			auth.GET("/events", realtime.ServeSSE(registry, cfg.SSEHeartbeatInterval))
		}
		if cfg.DriverEnabled(appenv.DriverWebSocket) {
			auth.GET("/ws", realtime.ServeWS(registry, cfg.WSPingInterval, cfg.WSPongTimeout))
		}

		auth.GET("/notifications", notificationsHandler.List)
		auth.POST("/notifications/:id/read", notificationsHandler.MarkRead)
		auth.POST("/notifications/read-all", notificationsHandler.MarkAllRead)

		auth.GET("/tasks/:taskId/timeline", timelineHandler.Get)
	}

	r.Run(":8080")
}
