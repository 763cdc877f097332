// Package app はwatchfavの起動処理を提供する。
// 設定の読み込み、ストレージ媒体の選択、全依存関係のワイヤリング、
// サブコマンドごとの実行とグレースフルシャットダウンを担う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/watchfav/internal/catalog"
	"github.com/hitoshi/watchfav/internal/config"
	"github.com/hitoshi/watchfav/internal/database"
	"github.com/hitoshi/watchfav/internal/favorites"
	"github.com/hitoshi/watchfav/internal/handler"
	"github.com/hitoshi/watchfav/internal/logger"
	"github.com/hitoshi/watchfav/internal/metrics"
	"github.com/hitoshi/watchfav/internal/middleware"
	"github.com/hitoshi/watchfav/internal/repository"
	"github.com/hitoshi/watchfav/internal/security"
	"github.com/hitoshi/watchfav/internal/view"
	"github.com/hitoshi/watchfav/internal/worker/repair"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログを再設定する
	logger.SetupDefaultWithOptions(w, logger.Options{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	})

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRepair:
		return runRepair(cfg)
	default:
		return runServe(cfg)
	}
}

// openRepository は設定されたバックエンドのKeyValueRepositoryを開く。
// 返されるclose関数は必ず呼び出すこと。
func openRepository(ctx context.Context, cfg *config.Config) (repository.KeyValueRepository, func() error, error) {
	nopClose := func() error { return nil }

	switch cfg.StorageBackend {
	case config.BackendMemory:
		slog.Warn("memory storage backend selected; favorites are lost on restart")
		return repository.NewMemoryKVRepo(), nopClose, nil

	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Ping(ctx, db, cfg.StorageTimeout); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return repository.NewPostgresKVRepo(db), db.Close, nil

	case config.BackendRedis:
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewRedisKVRepo(client, "watchfav:")
		pingCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		return repo, client.Close, nil

	default:
		repo, err := repository.NewFileKVRepo(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("file storage ready", slog.String("dir", cfg.StorageDir))
		return repo, nopClose, nil
	}
}

// buildHandler はリポジトリから画面APIのhttp.Handlerを組み立てる。
// カタログを読み込めない場合は起動を中止する。
func buildHandler(ctx context.Context, cfg *config.Config, repo repository.KeyValueRepository, log *slog.Logger) (http.Handler, func(), error) {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.NewCollector(reg)

	// 2. カタログ
	loader, err := catalog.NewLoader(
		security.NewSafeFetcher(cfg.CatalogFetchTimeout, cfg.CatalogMaxSize),
		log,
	)
	if err != nil {
		return nil, nil, err
	}
	provider, err := loader.Load(ctx, cfg.CatalogSource)
	if err != nil {
		return nil, nil, err
	}

	// 3. お気に入りストア（プロセスで1つ）
	store := favorites.NewStore(repo, favorites.StoreOptions{
		Key:     cfg.FavoritesKey,
		Timeout: cfg.StorageTimeout,
		Logger:  log,
		Metrics: mc,
	})

	// 4. 画面とルーター
	nav := view.NewNavigator(provider, store, log, mc)
	limiter := middleware.NewRateLimiter(middleware.RateLimiterPerMinute(cfg.RateLimitGeneral))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Metrics:           mc,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Screens:           handler.NewNavigatorAdapter(nav),
		Health:            store,
		MetricsHandler:    metrics.Handler(reg),
	})
	return router, limiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeRepo()

	router, stopLimiter, err := buildHandler(ctx, cfg, repo, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}
	defer stopLimiter()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-stop:
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// postgresバックエンド以外では何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageBackend != config.BackendPostgres {
		slog.Info("migrations skipped; storage backend is not postgres",
			slog.String("storage_backend", cfg.StorageBackend),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runRepair は保存済みお気に入りの修復ジョブを1回実行する。
func runRepair(cfg *config.Config) error {
	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeRepo()

	job := repair.NewRepairJob(repo, slog.Default())
	job.Key = cfg.FavoritesKey
	job.Timeout = cfg.StorageTimeout

	if _, err := job.Run(ctx); err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
