// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dreamscope/internal/auth"
	"dreamscope/internal/cache"
	"dreamscope/internal/config"
	"dreamscope/internal/database"
	"dreamscope/internal/llm"
	"dreamscope/internal/middleware"
	"dreamscope/internal/models"
	"dreamscope/internal/observability"
	"dreamscope/internal/repository"
	"dreamscope/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	dreamRepo      repository.DreamRepository
	tagRepo        repository.TagRepository
	commentRepo    repository.CommentRepository
	tokens         *auth.Tokens
	google         *auth.GoogleClient
	dreamService   *service.DreamService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient, llm.NewGeminiClient(cfg))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and swaps
// the generation provider.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, interpreter llm.Interpreter) (*Server, error) {
	tokens, err := auth.NewTokens(cfg)
	if err != nil {
		return nil, fmt.Errorf("token service init failed: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	dreamRepo := repository.NewDreamRepository(db)
	tagRepo := repository.NewTagRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	prom := middleware.InitMetrics("dreamscope-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		dreamRepo:      dreamRepo,
		tagRepo:        tagRepo,
		commentRepo:    commentRepo,
		tokens:         tokens,
		google:         auth.NewGoogleClient(cfg),
	}
	server.dreamService = service.NewDreamService(dreamRepo, tagRepo, interpreter, cfg.MemoryContextSize)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing spans per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "X-Total-Count",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	authGroup := app.Group("/auth")
	authGroup.Get("/google/login", s.GoogleLogin)
	authGroup.Get("/google/callback", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "oauth_callback"), s.GoogleCallback)
	authGroup.Post("/logout", s.Logout)
	authGroup.Get("/whoami", s.AuthRequired(), s.WhoAmI)

	// Public browse routes
	app.Get("/dreams", s.GetDreams)
	app.Get("/dreams/:id/comments", s.GetComments)
	app.Get("/dreams/:id", s.GetDream)
	app.Get("/search", middleware.RateLimit(
		s.redis, 30, time.Minute, "search"), s.SearchDreams)
	app.Get("/tags/meta", s.GetTagsMeta)
	app.Get("/tags", s.GetTags)

	// Protected routes
	protected := app.Group("", s.AuthRequired())
	protected.Post("/dreams", middleware.RateLimit(
		s.redis, 5, time.Minute, "create_dream"), s.CreateDream)
	protected.Post("/dreams/:id/comments/:commentId/replies", s.ReplyToComment)
	protected.Post("/dreams/:id/comments/:commentId", s.UpdateComment)
	protected.Delete("/dreams/:id/comments/:commentId", s.DeleteComment)
	protected.Post("/dreams/:id/comments", middleware.RateLimit(
		s.redis, 15, time.Minute, "create_comment"), s.CreateComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is optional; without it caching and the rotation denylist
		// degrade but the API stays functional.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired resolves the session from credential cookies. A valid access
// token authenticates directly; an expired, malformed or absent one falls
// back to the refresh token, which transparently re-issues both cookies
// before the request proceeds. Any other state is 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessCookie := c.Cookies(s.config.AccessCookieName)
		if accessCookie != "" {
			claims, err := s.tokens.Verify(accessCookie)
			if err == nil && claims.Type == auth.TypeAccess {
				user, authErr := s.resolveSubject(c, claims)
				if authErr != nil {
					return authErr
				}
				return s.proceedAuthenticated(c, user)
			}
			if err == nil && claims.Type != auth.TypeAccess {
				observability.AuthFailures.WithLabelValues("token_type_mismatch").Inc()
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthenticatedError("Invalid credential"))
			}
			if !errors.Is(err, auth.ErrExpiredCredential) {
				observability.AuthFailures.WithLabelValues("invalid_access").Inc()
			}
			// Expired or otherwise unverifiable access token: fall through to
			// the refresh path. Only a valid token of the wrong type is
			// rejected outright.
		}

		refreshCookie := c.Cookies(s.config.RefreshCookieName)
		if refreshCookie == "" {
			observability.AuthFailures.WithLabelValues("missing_credentials").Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authentication required"))
		}

		claims, err := s.tokens.VerifyRefresh(c.UserContext(), refreshCookie)
		if err != nil {
			reason := "invalid_refresh"
			if errors.Is(err, auth.ErrExpiredCredential) {
				reason = "expired_refresh"
			} else if errors.Is(err, auth.ErrTokenRevoked) {
				reason = "revoked_refresh"
			}
			observability.AuthFailures.WithLabelValues(reason).Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Session expired, please sign in again"))
		}

		user, authErr := s.resolveSubject(c, claims)
		if authErr != nil {
			return authErr
		}

		access, refresh, err := s.tokens.Rotate(c.UserContext(), user.ID, refreshCookie)
		if err != nil {
			observability.AuthFailures.WithLabelValues("rotation_failed").Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Session expired, please sign in again"))
		}
		auth.SetAuthCookies(c, s.config, access, refresh)
		observability.TokenRefreshes.Inc()

		return s.proceedAuthenticated(c, user)
	}
}

// resolveSubject maps verified claims to a live user row. A signed token
// whose subject no longer exists is treated as unauthenticated, not as a
// missing resource.
func (s *Server) resolveSubject(c *fiber.Ctx, claims *auth.Claims) (*models.User, error) {
	userID, err := claims.UserID()
	if err != nil {
		observability.AuthFailures.WithLabelValues("invalid_subject").Inc()
		return nil, models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Invalid credential"))
	}

	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			observability.AuthFailures.WithLabelValues("unknown_subject").Inc()
			return nil, models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid credential"))
		}
		return nil, models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return user, nil
}

func (s *Server) proceedAuthenticated(c *fiber.Ctx, user *models.User) error {
	c.Locals("userID", user.ID)
	c.Locals("user", user)
	// Sync to UserContext for logging and downstream services
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
	c.SetUserContext(ctx)
	return c.Next()
}

// currentUser returns the user stored by AuthRequired.
func (s *Server) currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "DreamScope API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
