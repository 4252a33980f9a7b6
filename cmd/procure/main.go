package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bitfantasy/procure/internal/config"
	"github.com/bitfantasy/procure/internal/database"
	"github.com/bitfantasy/procure/internal/middleware"
	"github.com/bitfantasy/procure/internal/purchasing/handler"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/bitfantasy/procure/internal/purchasing/sse"
	"github.com/bitfantasy/procure/internal/shared/feishu"
	"github.com/bitfantasy/procure/internal/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var configFile string

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	decimal.MarshalJSONWithoutQuotes = true

	root := &cobra.Command{
		Use:           "procure",
		Short:         "Purchase order management service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./configs/config.yaml)")
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API server", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Create or update database tables", RunE: runMigrate},
		&cobra.Command{Use: "scan", Short: "Flag stale purchase orders awaiting material receipt", RunE: runScan},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("procure %s (built %s)\n", Version, BuildTime)
			},
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("procure: %v", err)
	}
}

// app 各子命令共享的运行时依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &app{cfg: cfg, logger: zapLogger, db: db}
	if cfg.Redis.Host != "" {
		a.redis = initRedis(cfg.Redis)
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.logger.Sync()
}

// services 按配置组装服务层，未配置的外部依赖保持为nil
func (a *app) services(ctx context.Context, publisher service.EventPublisher) (*service.Services, error) {
	repos, err := repository.NewRepositories(a.db)
	if err != nil {
		return nil, err
	}
	taxRate, err := decimal.NewFromString(a.cfg.Purchasing.DefaultTaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid purchasing.default_tax_rate %q: %w", a.cfg.Purchasing.DefaultTaxRate, err)
	}

	deps := service.Dependencies{Logger: a.logger, Publisher: publisher}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.Tokens = service.NewRedisTokenStore(a.redis)
	} else {
		a.logger.Warn("redis not configured, refresh tokens are kept in memory")
	}

	if a.cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.Options{
			Endpoint:  a.cfg.MinIO.Endpoint,
			AccessKey: a.cfg.MinIO.AccessKey,
			SecretKey: a.cfg.MinIO.SecretKey,
			Bucket:    a.cfg.MinIO.Bucket,
			UseSSL:    a.cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		deps.Objects = store
	} else {
		a.logger.Warn("minio not configured, attachments are disabled")
	}

	if a.cfg.Feishu.Enabled() {
		deps.CardSender = feishu.NewClient(a.cfg.Feishu.AppID, a.cfg.Feishu.AppSecret)
	}

	detailURL := ""
	if a.cfg.Server.PublicURL != "" {
		detailURL = strings.TrimRight(a.cfg.Server.PublicURL, "/") + "/notifications"
	}

	return service.NewServices(repos, deps, service.Options{
		DefaultTaxRate: taxRate,
		Order:          service.OrderOptions{AutoConfirmFullReceipt: a.cfg.Purchasing.AutoConfirmFullReceipt},
		Notification: service.NotificationOptions{
			StaleAfter: a.cfg.Purchasing.StaleAfter,
			ChatID:     a.cfg.Purchasing.NotifyChatID,
			DetailURL:  detailURL,
		},
		Auth: service.AuthOptions{
			Secret:     a.cfg.JWT.Secret,
			Issuer:     a.cfg.JWT.Issuer,
			AccessTTL:  a.cfg.JWT.AccessTokenExpire,
			RefreshTTL: a.cfg.JWT.RefreshTokenExpire,
		},
	}), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if err := database.Migrate(a.db); err != nil {
		return err
	}
	a.logger.Info("database migrated", zap.String("driver", a.cfg.Database.Driver))
	return nil
}

// runScan 供定时任务调用的单次扫描
func runScan(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.services(cmd.Context(), nil)
	if err != nil {
		return err
	}
	created, err := svc.Notification.CheckPendingOrders(cmd.Context())
	if err != nil {
		return err
	}
	svc.Notification.WaitPushes()
	a.logger.Info("stale purchase order scan finished", zap.Int("created", created))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	a.logger.Info("Starting procure service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	if err := database.Migrate(a.db); err != nil {
		return err
	}

	hub := sse.NewHub(a.logger)
	svc, err := a.services(cmd.Context(), hub)
	if err != nil {
		return err
	}
	handlers := handler.NewHandlers(svc, hub, a.logger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

	registerRoutes(router, handlers, a.db, hub, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE 长连接
	}

	go func() {
		a.logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
	}

	a.logger.Info("Server exited")
	return nil
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB, hub *sse.Hub, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		if err := database.Ping(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sse_clients": hub.ClientCount()})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1")
	h.RegisterRoutes(api, middleware.JWTAuth(cfg.JWT.Secret))
}
