// Package main はタスク管理サーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/task-manager/internal/auth"
	"github.com/yourusername/task-manager/internal/config"
	"github.com/yourusername/task-manager/internal/store"
	"github.com/yourusername/task-manager/internal/task"
	"github.com/yourusername/task-manager/internal/user"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// ストレージの初期化（接続・疎通確認・インデックス作成）
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := db.Close(shutdownCtx); err != nil {
			log.Printf("Failed to close storage: %v", err)
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.LoadHTMLGlob("web/templates/*.html")

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))

	// ルーティングの設定
	directory := user.NewDirectory(db.Users())
	tasks := task.NewRepository(db.Tasks())
	authManager := auth.NewManager(directory, newAttemptLimiter(cfg))
	setupRoutes(router, authManager, directory, tasks)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newAttemptLimiter はログイン試行制限の実装を選択します。
// REDIS_URL が設定されている場合は複数インスタンスで共有できる
// Redis実装、それ以外はインメモリ実装を使います。
func newAttemptLimiter(cfg *config.Config) auth.AttemptLimiter {
	if cfg.RedisURL == "" {
		return auth.NewMemoryLimiter()
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse REDIS_URL: %v", err)
	}
	return auth.NewRedisLimiter(redis.NewClient(opt))
}

// setupRoutes は画面と認証周りの配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, directory *user.Directory, tasks *task.Repository) {
	router.GET("/signup", authManager.SignupForm)
	router.POST("/signup", authManager.Signup)
	router.GET("/login", authManager.LoginForm)
	router.POST("/login", authManager.Login)

	protected := router.Group("")
	protected.Use(authManager.RequireLogin())
	{
		protected.GET("/", task.DashboardHandler(tasks))
		protected.GET("/logout", authManager.Logout)

		protected.GET("/task/add", task.AddFormHandler())
		protected.POST("/task/add", task.AddHandler(tasks))
		protected.GET("/task/edit/:id", task.EditFormHandler(tasks))
		protected.POST("/task/edit/:id", task.EditHandler(tasks))
		protected.GET("/task/complete/:id", task.CompleteHandler(tasks))
		protected.GET("/task/delete/:id", task.DeleteHandler(tasks))

		protected.GET("/team", user.TeamHandler(directory))
	}

	router.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "404.html", nil)
	})
}
