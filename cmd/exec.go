package cmd

import (
	"log/slog"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"match-ticketing/config"
	"match-ticketing/internal/handlers"
	"match-ticketing/internal/identity"
	"match-ticketing/internal/services"
	"match-ticketing/internal/store"
	_ "match-ticketing/migrations"
	"match-ticketing/monitoring"
	"match-ticketing/security"
	"match-ticketing/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional, notifications degrade to no-ops)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		slog.Warn("pubnub keys not configured, notifications disabled")
	}

	// Initialize services
	st := store.New(app)
	notifier := services.NewNotifier(pn)
	monitor := monitoring.NewMonitor(st)
	supervisor := services.NewTimeoutSupervisor(st, notifier, monitor, cfg)
	queueService := services.NewQueueService(st, redisClient, notifier, supervisor, monitor, cfg)
	bookingService := services.NewBookingService(st, notifier, supervisor, monitor, cfg)
	rateLimiter := security.NewRateLimiter(redisClient, cfg.QueueRequestsPerMinute)

	// Initialize handlers
	matchHandler := handlers.NewMatchHandler(app, st)
	queueHandler := handlers.NewQueueHandler(app, queueService, cfg)
	bookingHandler := handlers.NewBookingHandler(app, bookingService)
	adminHandler := handlers.NewAdminHandler(app, st, queueService, notifier)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	if cfg.EnableMetrics {
		monitor.Serve(cfg.MetricsPort)
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		supervisor.Start()

		g := e.Router.Group("/api/v1")
		g.BindFunc(identity.Middleware())

		// Match browsing
		g.GET("/matches", matchHandler.List)
		g.GET("/matches/{matchId}", matchHandler.Get)
		g.GET("/matches/{matchId}/stands", matchHandler.Stands)

		// Queue endpoints
		g.POST("/queue/join", queueHandler.Join).BindFunc(rateLimiter.Middleware())
		g.GET("/queue/position", queueHandler.Position)
		g.POST("/queue/check-turn", queueHandler.CheckTurn).BindFunc(rateLimiter.Middleware())
		g.GET("/queue/status", queueHandler.Status)
		g.POST("/queue/leave", queueHandler.Leave)

		// Booking endpoints
		g.POST("/booking/confirm", bookingHandler.Confirm)

		// Admin endpoints
		g.GET("/admin/queue-dashboard", adminHandler.Dashboard).Bind(apis.RequireSuperuserAuth())
		g.POST("/admin/expire-entry", adminHandler.ExpireEntry).Bind(apis.RequireSuperuserAuth())

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"reason": "redis unreachable",
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		supervisor.Stop()
		return e.Next()
	})

	return app.Start()
}
