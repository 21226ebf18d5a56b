package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/apiserver/database"
	"github.com/openagora/agora/internal/apiserver/handler"
	"github.com/openagora/agora/internal/apiserver/middleware"
	"github.com/openagora/agora/internal/auth"
	"github.com/openagora/agora/internal/auth/jwt"
	"github.com/openagora/agora/internal/chat/cache"
	"github.com/openagora/agora/internal/chat/history"
	"github.com/openagora/agora/internal/chat/hub"
	"github.com/openagora/agora/internal/chat/router"
	"github.com/openagora/agora/internal/chat/session"
	"github.com/openagora/agora/internal/common/cnst"
	"github.com/openagora/agora/internal/common/config"
	"github.com/openagora/agora/pkg/logger"
	"github.com/openagora/agora/pkg/metrics"
	"github.com/openagora/agora/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Agora API Server",
		Long:  `Agora API Server provides the community platform backend with realtime context-scoped chat`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting apiserver", zap.String("version", version.Get()))

	store, err := database.NewDBStore(zapLogger, &cfg.Database)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	jwtService, err := jwt.NewService(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Duration:  time.Duration(cfg.JWT.Duration),
	})
	if err != nil {
		zapLogger.Fatal("failed to initialize jwt service", zap.Error(err))
	}

	recencyCache, err := cache.New(zapLogger, &cfg.Cache)
	if err != nil {
		zapLogger.Fatal("failed to initialize recency cache", zap.Error(err))
	}

	m := metrics.New(cfg.Metrics)
	binder := session.NewBinder(zapLogger, auth.NewJWTValidator(jwtService))
	fanout := hub.NewHub(zapLogger)
	chatRouter := router.NewRouter(zapLogger, store, recencyCache, fanout, m)

	threshold := cfg.Cache.Capacity
	if threshold <= 0 {
		threshold = cnst.DefaultCacheCapacity
	}
	historySvc := history.NewService(zapLogger, store, recencyCache, threshold, m)

	authHandler := handler.NewAuth(zapLogger, store, jwtService)
	chatHandler := handler.NewChat(zapLogger, historySvc, chatRouter)
	wsHandler := handler.NewWebSocket(zapLogger, binder, fanout, chatRouter, m, cfg.Chat)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), m.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": version.Get()})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.POST("/api/auth/register", authHandler.HandleRegister)
	r.POST("/api/auth/login", authHandler.HandleLogin)

	authed := r.Group("/api", middleware.JWTAuthMiddleware(jwtService))
	authed.GET("/chat/history", chatHandler.HandleGetHistory)
	authed.DELETE("/chat/messages/:id", chatHandler.HandleDeleteMessage)

	r.GET("/ws/chat", wsHandler.HandleChat)

	port := cfg.Server.Port
	if port == 0 {
		if env := os.Getenv("PORT"); env != "" {
			port, _ = strconv.Atoi(env)
		}
	}
	if port == 0 {
		port = 5310
	}

	zapLogger.Info("server listening", zap.Int("port", port))
	if err := r.Run(":" + strconv.Itoa(port)); err != nil {
		zapLogger.Fatal("server exited", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
