package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"huddle/internal/api"
	"huddle/internal/authz"
	"huddle/internal/config"
	"huddle/internal/db"
	"huddle/internal/middleware"
	"huddle/internal/observ"
	"huddle/internal/realtime"
	"huddle/internal/repository/postgres"
	"huddle/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional: without it, signed URLs are re-signed every time
	// and realtime events stay local to this instance.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without it", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	workspaceRepo := postgres.NewWorkspaceStore(pool)
	memberRepo := postgres.NewMemberStore(pool)
	channelRepo := postgres.NewChannelStore(pool)
	conversationRepo := postgres.NewConversationStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	reactionRepo := postgres.NewReactionStore(pool)
	fileRepo := postgres.NewFileStore(pool)

	guard := authz.NewGuard(memberRepo)

	store, err := storage.NewService(cfg.UploadDir, cfg.JWTSecret, cfg.UploadURLTTL, fileRepo, rdb, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	hub := realtime.NewHub(rdb, logger)
	go hub.Run(ctx)

	aggregator := api.NewAggregator(memberRepo, userRepo, reactionRepo, messageRepo, store)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.TokenTTL, logger)
	userHandler := api.NewUserHandler(userRepo, logger)
	workspaceHandler := api.NewWorkspaceHandler(workspaceRepo, memberRepo, guard, logger)
	memberHandler := api.NewMemberHandler(memberRepo, userRepo, guard, logger)
	channelHandler := api.NewChannelHandler(channelRepo, guard, logger)
	conversationHandler := api.NewConversationHandler(conversationRepo, memberRepo, guard, logger)
	messageHandler := api.NewMessageHandler(messageRepo, channelRepo, conversationRepo, guard, aggregator, hub, logger)
	reactionHandler := api.NewReactionHandler(reactionRepo, messageRepo, guard, hub, logger)
	uploadHandler := api.NewUploadHandler(store, logger)
	streamHandler := api.NewStreamHandler(hub, guard, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(middleware.RequestLogger(logger), gin.Recovery())

	// Public routes. The file routes authenticate with their signed
	// token, not a session, so they live outside the auth group.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)
	srv.PUT("/v1/files/:id", uploadHandler.Put)
	srv.GET("/v1/files/:id", uploadHandler.Get)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.GET("/me", userHandler.GetMe)

	v1.POST("/workspaces", workspaceHandler.Create)
	v1.GET("/workspaces", workspaceHandler.List)
	v1.GET("/workspaces/:id", workspaceHandler.GetByID)
	v1.GET("/workspaces/:id/info", workspaceHandler.GetInfoByID)
	v1.PATCH("/workspaces/:id", workspaceHandler.Update)
	v1.DELETE("/workspaces/:id", workspaceHandler.Remove)
	v1.POST("/workspaces/:id/join", workspaceHandler.Join)
	v1.POST("/workspaces/:id/join-code", workspaceHandler.NewJoinCode)
	v1.GET("/workspaces/:id/stream", streamHandler.Subscribe)

	v1.GET("/workspaces/:id/members", memberHandler.List)
	v1.GET("/workspaces/:id/members/me", memberHandler.Current)
	v1.GET("/members/:id", memberHandler.GetByID)
	v1.PATCH("/members/:id", memberHandler.Update)
	v1.DELETE("/members/:id", memberHandler.Remove)

	v1.POST("/channels", channelHandler.Create)
	v1.GET("/workspaces/:id/channels", channelHandler.List)
	v1.GET("/channels/:id", channelHandler.GetByID)
	v1.PATCH("/channels/:id", channelHandler.Update)
	v1.DELETE("/channels/:id", channelHandler.Remove)

	v1.POST("/conversations", conversationHandler.CreateOrGet)

	v1.POST("/messages", messageHandler.Create)
	v1.GET("/messages", messageHandler.List)
	v1.GET("/messages/:id", messageHandler.GetByID)
	v1.PATCH("/messages/:id", messageHandler.Update)
	v1.DELETE("/messages/:id", messageHandler.Remove)
	v1.POST("/messages/:id/reactions", reactionHandler.Toggle)

	v1.POST("/upload", uploadHandler.GenerateURL)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting huddle",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
