// Package auth は認証・認可機能を提供します。
// パスワードはbcryptで検証し、ログイン状態は署名付きクッキーの
// セッションで保持します。
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/flash"
	"github.com/yourusername/task-manager/internal/user"
)

const (
	SessionCookieName    = "tm_session"
	sessionKeyUserID     = "auth_user_id"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
)

var (
	maxSessionLifetime = 12 * time.Hour
	idleTimeout        = 30 * time.Minute
)

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// Directory はログイン・サインアップに必要なユーザー操作を提供します。
// 実装は user.Directory です。
type Directory interface {
	Create(ctx context.Context, username string, passwordHash string) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users   Directory
	limiter AttemptLimiter
}

// NewManager は認証マネージャーを作成します。
func NewManager(users Directory, limiter AttemptLimiter) *Manager {
	return &Manager{
		users:   users,
		limiter: limiter,
	}
}

// LoginForm は GET /login のハンドラーです。
func (m *Manager) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Flashes": flash.Take(c),
		"Next":    c.Query("next"),
	})
}

// Login は POST /login のハンドラーです。認証に成功するとセッションを発行し、
// next パラメータ（相対パスのみ）またはダッシュボードへリダイレクトします。
func (m *Manager) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.Query("next")

	if username == "" || password == "" {
		m.renderLogin(c, http.StatusBadRequest, "ユーザー名とパスワードを入力してください", next)
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()
	if retryAfter := m.limiter.RetryAfter(ctx, ip); retryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		m.renderLogin(c, http.StatusTooManyRequests, "試行回数が上限に達しました。しばらくしてから再度お試しください", next)
		return
	}

	u, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		m.renderLogin(c, http.StatusInternalServerError, "ログイン処理に失敗しました。再度お試しください", next)
		return
	}

	if u == nil || !VerifyPassword(u.PasswordHash, password) {
		m.limiter.RecordFailure(ctx, ip)
		m.renderLogin(c, http.StatusUnauthorized, "ユーザー名またはパスワードが正しくありません", next)
		return
	}

	m.limiter.Reset(ctx, ip)

	session := sessions.Default(c)
	now := time.Now()
	session.Set(sessionKeyUserID, u.ID)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())

	if err := session.Save(); err != nil {
		m.renderLogin(c, http.StatusInternalServerError, "セッションの保存に失敗しました", next)
		return
	}

	c.Redirect(http.StatusFound, safeNextPath(next))
}

// SignupForm は GET /signup のハンドラーです。
func (m *Manager) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{
		"Flashes": flash.Take(c),
	})
}

// Signup は POST /signup のハンドラーです。ユーザー名が既に使われている場合は
// サインアップ画面へ戻します。
func (m *Manager) Signup(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	if username == "" || password == "" {
		c.HTML(http.StatusBadRequest, "signup.html", gin.H{
			"Error": "ユーザー名とパスワードを入力してください",
		})
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{
			"Error": "アカウントの作成に失敗しました。再度お試しください",
		})
		return
	}

	if _, err := m.users.Create(c.Request.Context(), username, hash); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			flash.Set(c, "danger", "そのユーザー名は既に使われています")
			c.Redirect(http.StatusFound, "/signup")
			return
		}
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{
			"Error": "アカウントの作成に失敗しました。再度お試しください",
		})
		return
	}

	flash.Set(c, "success", "アカウントを作成しました。ログインしてください")
	c.Redirect(http.StatusFound, "/login")
}

// Logout は GET /logout のハンドラーです。何度呼んでも安全です。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()

	flash.Set(c, "info", "ログアウトしました")
	c.Redirect(http.StatusFound, "/login")
}

// RequireLogin はセッションを検証し、ログイン済みユーザーを
// リクエストコンテキストへ格納するミドルウェアを返します。
// 未ログインの場合は元のURLを next パラメータに載せてログイン画面へ誘導します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionKeyUserID).(string)
		if !ok || userID == "" {
			redirectToLogin(c)
			return
		}

		now := time.Now()
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		lastActive := readUnix(session.Get(sessionKeyLastActive))

		if issuedAt.IsZero() || now.Sub(issuedAt) > maxSessionLifetime {
			session.Clear()
			_ = session.Save()
			redirectToLogin(c)
			return
		}

		if lastActive.IsZero() || now.Sub(lastActive) > idleTimeout {
			session.Clear()
			_ = session.Save()
			redirectToLogin(c)
			return
		}

		u, err := m.users.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			c.Abort()
			return
		}
		if u == nil {
			// セッションが指すユーザーが存在しない場合はセッションごと破棄する
			session.Clear()
			_ = session.Save()
			redirectToLogin(c)
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		_ = session.Save()
		user.IntoContext(c, u)
		c.Next()
	}
}

func (m *Manager) renderLogin(c *gin.Context, status int, message string, next string) {
	c.HTML(status, "login.html", gin.H{
		"Error": message,
		"Next":  next,
	})
}

func redirectToLogin(c *gin.Context) {
	target := "/login"
	if uri := c.Request.URL.RequestURI(); uri != "" && uri != "/login" {
		target = "/login?next=" + url.QueryEscape(uri)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// safeNextPath はリダイレクト先を検証します。外部サイトへの
// オープンリダイレクトを防ぐため、相対パスのみ許可します。
func safeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
