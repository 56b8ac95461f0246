package server

import (
	"github.com/2003abishek/safetracker/internal/auth"
	"github.com/2003abishek/safetracker/internal/config"
	"github.com/2003abishek/safetracker/internal/notify"
	"github.com/2003abishek/safetracker/internal/stream"
	"github.com/2003abishek/safetracker/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App        *fiber.App
	Cfg        config.Config
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Stream     *stream.Hub
	Dispatcher notify.Dispatcher
}

// NewServer wires the store, hub and dispatcher into the route tree. All
// collaborators are constructed once here and passed down, none of the
// feature packages hold shared singletons.
func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, dispatcher notify.Dispatcher) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:        app,
		Cfg:        cfg,
		DB:         db,
		Redis:      redisClient,
		Stream:     stream.NewHub(redisClient),
		Dispatcher: dispatcher,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	trackingSvc := tracking.NewService(s.DB, s.Stream)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	tracking.RegisterRoutes(s.App.Group("/sessions"), trackingSvc, s.Dispatcher, s.Cfg.BaseURL, jwtMiddleware)
	tracking.RegisterShareRoutes(s.App.Group("/share"), trackingSvc, s.Cfg.DemoMode)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
