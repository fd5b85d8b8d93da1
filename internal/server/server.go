package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"moodboard-backend/internal/ai"
	"moodboard-backend/internal/auth"
	"moodboard-backend/internal/cache"
	"moodboard-backend/internal/config"
	"moodboard-backend/internal/handler"
	"moodboard-backend/internal/presence"
	"moodboard-backend/internal/relay"
	"moodboard-backend/internal/service"
	"moodboard-backend/internal/storage"
)

// Server wires the app together
type Server struct {
	app        *fiber.App
	cfg        *config.Config
	db         *gorm.DB
	jwtManager *auth.JWTManager

	authHandler   *handler.AuthHandler
	roomHandler   *handler.RoomHandler
	boardHandler  *handler.BoardHandler
	uploadHandler *handler.UploadHandler
	healthHandler *handler.HealthHandler
	socketHandler *handler.SocketHandler

	redis *cache.RedisClient
}

// New builds the server and all of its dependencies.
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BodyLimit:    cfg.Upload.MaxBodySize,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry)

	users := service.NewUserService(db)
	rooms := service.NewRoomService(db)
	boards := service.NewBoardService(db)
	images := service.NewImageService(db)
	keywords := service.NewKeywordService(db)
	threads := service.NewThreadService(db)
	chat := service.NewChatService(db)

	// Redis is optional: without it chat history always hits Postgres
	var redisClient *cache.RedisClient
	if cfg.Redis.Addr != "" {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("[Server] redis unavailable: %v (chat cache disabled)", err)
			redisClient = nil
		}
	}

	// S3 is optional: without it uploads are rejected at the endpoint
	var s3Storage *storage.S3Storage
	if cfg.S3.BucketName != "" && cfg.S3.AccessKeyID != "" {
		var err error
		s3Storage, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			log.Printf("[Server] s3 unavailable: %v (uploads disabled)", err)
		} else {
			log.Printf("[Server] s3 ready (bucket %s)", cfg.S3.BucketName)
		}
	}

	llm := ai.NewLLM(cfg.AI)
	captioner := ai.NewCaptioner(cfg.AI)

	hub := relay.NewHub()
	tracker := presence.NewTracker()

	s := &Server{
		app:        app,
		cfg:        cfg,
		db:         db,
		jwtManager: jwtManager,
		redis:      redisClient,

		authHandler:   handler.NewAuthHandler(users, jwtManager, cfg.Auth),
		roomHandler:   handler.NewRoomHandler(rooms, chat, redisClient),
		boardHandler:  handler.NewBoardHandler(boards, threads, keywords, llm),
		healthHandler: handler.NewHealthHandler(db),
		socketHandler: handler.NewSocketHandler(hub, tracker, rooms, boards, images, keywords, threads, chat, redisClient, s3Storage, llm),
	}
	if s3Storage != nil {
		s.uploadHandler = handler.NewUploadHandler(images, s3Storage, captioner, llm, hub, tracker, cfg.Upload)
	}
	return s
}

// SetupMiddleware installs the global middleware chain.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes installs HTTP routes and the websocket endpoint.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Health)

	// brute-force protection on the credential endpoints
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
	})

	api := s.app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", authLimiter, s.authHandler.Register)
	authGroup.Post("/login", authLimiter, s.authHandler.Login)
	authGroup.Post("/refresh", s.authHandler.Refresh)
	authGroup.Get("/me", auth.Middleware(s.jwtManager), s.authHandler.Me)
	authGroup.Get("/profile/:id", auth.Middleware(s.jwtManager), s.authHandler.Profile)

	roomGroup := api.Group("/rooms", auth.Middleware(s.jwtManager))
	roomGroup.Post("/create", s.roomHandler.Create)
	roomGroup.Get("/join/:joinCode", s.roomHandler.Join)
	roomGroup.Get("/:id", s.roomHandler.Get)
	roomGroup.Get("/:id/chat", s.roomHandler.Chat)

	boardGroup := api.Group("/boards", auth.Middleware(s.jwtManager))
	boardGroup.Get("/:id", s.boardHandler.Get)
	boardGroup.Get("/:id/iterations", s.boardHandler.Iterations)
	boardGroup.Get("/:id/recommend", s.boardHandler.Recommend)

	if s.uploadHandler != nil {
		api.Post("/upload", auth.Middleware(s.jwtManager), s.uploadHandler.Upload)
	} else {
		api.Post("/upload", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "uploads are not configured"})
		})
	}

	// websocket endpoint: upgrade check, then JWT from cookie or query
	s.app.Get("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		accessToken := auth.TokenFromUpgrade(c)
		if accessToken == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("userId", claims.UserID)
		c.Locals("username", claims.Username)
		return c.Next()
	}, websocket.New(s.socketHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Listen blocks serving the app.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the app and closes shared clients.
func (s *Server) Shutdown() error {
	if s.redis != nil {
		s.redis.Close()
	}
	return s.app.Shutdown()
}
