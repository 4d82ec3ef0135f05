package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	httpHandler "collaborative-editor/internal/handler/http"
	wsHandler "collaborative-editor/internal/handler/websocket"
	"collaborative-editor/internal/hub"
	filepersistence "collaborative-editor/internal/infra/persistence/file"
	gormpersistence "collaborative-editor/internal/infra/persistence/gorm"
	"collaborative-editor/internal/infra/setup"
	redisstate "collaborative-editor/internal/infra/state/redis"
	"collaborative-editor/internal/middleware"
	"collaborative-editor/internal/queue"
	"collaborative-editor/internal/repository"
	"collaborative-editor/internal/service"
	"collaborative-editor/internal/tasks"
	"collaborative-editor/internal/worker"
)

// 关闭时等待各组件的最长时间
const shutdownTimeout = 10 * time.Second

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Scheduler   *asynq.Scheduler
	Queue       *queue.KeyedQueue
	EditorHub   *hub.EditorHub
	ChatHub     *hub.ChatHub
	Router      *gin.Engine
	HttpServer  *http.Server

	hubCtx    context.Context
	hubCancel context.CancelFunc
	hubs      sync.WaitGroup
}

// NewLogger 按配置创建 logrus Logger：生产环境输出 JSON，其余输出文本
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	return log
}

// NewApp 加载配置并创建应用
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		// logrus 还未配置，直接写 stderr
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}
	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel().String())
	return Build(cfg, afero.NewOsFs(), log)
}

// Build 根据配置初始化所有组件。fs 为文件存储所在的文件系统。
func Build(cfg *Config, fs afero.Fs, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}
	app.hubCtx, app.hubCancel = context.WithCancel(context.Background())

	// 1. 初始化基础设施
	log.Info("Initializing infrastructure...")
	for _, dir := range []string{cfg.UploadsDir(), cfg.HistoryDir()} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	db, err := setup.InitDB(setup.DBOptions{
		Driver:   cfg.DBDriver,
		Path:     cfg.DBPath,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	app.DB = db
	if err := setup.MigrateDB(db); err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	var redisClientOpt asynq.RedisClientOpt
	if cfg.RedisEnabled() {
		redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		app.RedisClient = redisClient
		redisClientOpt = asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		app.AsynqClient = asynq.NewClient(redisClientOpt)
		log.Info("Redis and Asynq client initialized")
	} else {
		log.Info("REDIS_ADDR not set, rate limiting and background checkpoints disabled")
	}

	// 2. 初始化 Repositories
	files := filepersistence.NewFileStore(fs, cfg.UploadsDir())
	var history repository.HistoryRepository
	if cfg.HistoryBackend == BackendDB {
		history = gormpersistence.NewGormHistoryRepository(db)
	} else {
		history = filepersistence.NewHistoryFileRepository(fs, cfg.HistoryDir())
	}
	var chatLog repository.ChatLogRepository
	if cfg.ChatBackend == BackendRedis {
		chatLog = redisstate.NewRedisChatLogRepository(app.RedisClient, cfg.KeyPrefix)
	} else {
		chatLog = filepersistence.NewChatLogFileRepository(fs, cfg.ChatLogPath())
	}
	snapshots := gormpersistence.NewGormSnapshotRepository(db)
	log.WithFields(logrus.Fields{"history": cfg.HistoryBackend, "chat": cfg.ChatBackend}).Info("Repositories initialized")

	// 3. 初始化 Services
	app.Queue = queue.NewKeyedQueue(log)
	docService := service.NewDocumentService(files, history, app.Queue, log)
	chatService := service.NewChatService(app.hubCtx, chatLog, app.Queue, log)
	checkpointService := service.NewCheckpointService(files, snapshots, log)

	// 4. 初始化 Hubs
	rooms := hub.NewRoomDirectory()
	if app.AsynqClient != nil {
		rooms.OnRoomClosed(app.enqueueCheckpointOnClose)
	}
	app.EditorHub = hub.NewEditorHub(rooms, docService, cfg.LockPolicy, log)
	app.ChatHub = hub.NewChatHub(chatService, log)

	// 5. 初始化 Worker 和 Scheduler
	if app.AsynqClient != nil {
		app.AsynqServer = worker.NewWorkerServer(
			redisClientOpt,
			worker.NewCheckpointSweepHandler(rooms, app.AsynqClient, log),
			worker.NewDocumentCheckpointHandler(checkpointService, log),
			log,
		)
		scheduler := asynq.NewScheduler(redisClientOpt, &asynq.SchedulerOpts{Location: time.UTC})
		entryID, err := scheduler.Register(cfg.CheckpointSchedule, tasks.NewCheckpointSweepTask(), asynq.Queue("default"))
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("could not register checkpoint sweep with schedule %q: %w", cfg.CheckpointSchedule, err)
		}
		log.Infof("Checkpoint sweep registered with schedule '%s' (EntryID: %s)", cfg.CheckpointSchedule, entryID)
		app.Scheduler = scheduler
	}

	// 6. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	docHandler := httpHandler.NewDocumentHandler(docService, rooms)
	chatHandler := httpHandler.NewChatHandler(chatService)
	socketHandler := wsHandler.NewWebSocketHandler(app.EditorHub, app.ChatHub, cfg.CORSAllowedOrigin, log)

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	api := router.Group("/api")
	if app.RedisClient != nil {
		api.Use(middleware.RateLimit(app.RedisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	}
	{
		api.GET("/files/:id", docHandler.GetContent)
		api.GET("/files/:id/download", docHandler.Download)
		api.GET("/files/:id/history", docHandler.GetHistory)
		api.GET("/documents/active", docHandler.ListActive)
		api.GET("/chat/history", chatHandler.GetHistory)
	}
	ws := router.Group("/ws")
	{
		ws.GET("/editor", socketHandler.HandleEditor)
		ws.GET("/chat", socketHandler.HandleChat)
	}
	app.Router = router

	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// enqueueCheckpointOnClose 在房间关闭后为文档入队检查点任务。
// 回调运行在 Hub goroutine 中，入队经由 KeyedQueue 排在该文档未完成的写入之后。
func (a *App) enqueueCheckpointOnClose(documentID string) {
	key, err := repository.DocumentKey(documentID)
	if err != nil {
		return
	}
	err = a.Queue.Submit(key, func(ctx context.Context) {
		if err := worker.EnqueueDocumentCheckpoint(ctx, a.AsynqClient, documentID); err != nil {
			a.Log.WithError(err).WithField("document_id", documentID).Warn("Failed to enqueue checkpoint for closed room")
		}
	})
	if err != nil {
		a.Log.WithError(err).WithField("document_id", documentID).Debug("Checkpoint not scheduled, queue closed")
	}
}

// StartHubs 启动两个 Hub 的事件循环
func (a *App) StartHubs() {
	a.hubs.Add(2)
	go func() {
		defer a.hubs.Done()
		a.EditorHub.Run(a.hubCtx)
	}()
	go func() {
		defer a.hubs.Done()
		a.ChatHub.Run(a.hubCtx)
	}()
	a.Log.Info("Hub routines started")
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	a.StartHubs()

	if a.AsynqServer != nil {
		go a.AsynqServer.Start()
		a.Log.Info("Asynq worker server routine started")
	}
	if a.Scheduler != nil {
		go func() {
			a.Log.Info("Asynq scheduler starting...")
			if err := a.Scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
				a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
				return
			}
			a.Log.Info("Asynq scheduler stopped.")
		}()
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 1. 停止接受新的 HTTP 请求和连接
	if a.HttpServer != nil {
		if err := a.HttpServer.Shutdown(ctx); err != nil {
			a.Log.Errorf("Error shutting down HTTP server: %v", err)
		} else {
			a.Log.Info("HTTP server shut down gracefully.")
		}
	}

	// 2. 停止 Hub，关闭所有 WebSocket 连接
	a.StopHubs()

	// 3. 等待未完成的持久化任务
	if a.Queue != nil {
		if err := a.Queue.Close(ctx); err != nil {
			a.Log.Errorf("Persistence queue did not drain: %v", err)
		} else {
			a.Log.Info("Persistence queue drained.")
		}
	}

	// 4. 停止后台任务
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	a.closeStores()
	a.Log.Info("Application shutdown complete.")
}

// StopHubs 取消 Hub 的 context 并等待事件循环退出
func (a *App) StopHubs() {
	a.hubCancel()
	a.hubs.Wait()
}

// closeStores 关闭 Asynq Client、Redis 和数据库连接
func (a *App) closeStores() {
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}
}
