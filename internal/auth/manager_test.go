package auth

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/user"
)

type stubDirectory struct {
	byName    map[string]*user.User
	byID      map[string]*user.User
	createErr error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		byName: make(map[string]*user.User),
		byID:   make(map[string]*user.User),
	}
}

func (d *stubDirectory) Create(_ context.Context, username string, passwordHash string) (*user.User, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	if _, exists := d.byName[username]; exists {
		return nil, user.ErrUsernameTaken
	}
	u := &user.User{
		ID:           "id-" + username,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	d.byName[username] = u
	d.byID[u.ID] = u
	return u, nil
}

func (d *stubDirectory) FindByUsername(_ context.Context, username string) (*user.User, error) {
	return d.byName[username], nil
}

func (d *stubDirectory) FindByID(_ context.Context, id string) (*user.User, error) {
	return d.byID[id], nil
}

func testTemplates() *template.Template {
	root := template.New("root")
	for _, name := range []string{"login.html", "signup.html"} {
		template.Must(root.New(name).Parse(name))
	}
	return root
}

func newTestRouter(directory Directory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.SetHTMLTemplate(testTemplates())

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions(SessionCookieName, store))

	manager := NewManager(directory, NewMemoryLimiter())
	router.GET("/login", manager.LoginForm)
	router.POST("/login", manager.Login)
	router.GET("/signup", manager.SignupForm)
	router.POST("/signup", manager.Signup)

	protected := router.Group("")
	protected.Use(manager.RequireLogin())
	protected.GET("/", func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no user in context")
			return
		}
		c.String(http.StatusOK, u.Username)
	})
	protected.GET("/logout", manager.Logout)

	return router
}

func registerUser(t *testing.T, directory *stubDirectory, username string, password string) {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if _, err := directory.Create(context.Background(), username, hash); err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
}

func postForm(router *gin.Engine, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router *gin.Engine, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessCreatesSession(t *testing.T) {
	directory := newStubDirectory()
	registerUser(t, directory, "alice", "pw1")
	router := newTestRouter(directory)

	rec := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("login redirect = %q, want /", loc)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}

	dashboard := get(router, "/", cookies)
	if dashboard.Code != http.StatusOK {
		t.Fatalf("dashboard status with session = %d, want %d", dashboard.Code, http.StatusOK)
	}
	if body := dashboard.Body.String(); body != "alice" {
		t.Fatalf("session resolved to %q, want alice", body)
	}
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	directory := newStubDirectory()
	registerUser(t, directory, "alice", "pw1")
	router := newTestRouter(directory)

	rec := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	dashboard := get(router, "/", rec.Result().Cookies())
	if dashboard.Code != http.StatusFound {
		t.Fatalf("failed login must not grant a session, dashboard status = %d", dashboard.Code)
	}
}

func TestLoginUnknownUserRejected(t *testing.T) {
	router := newTestRouter(newStubDirectory())

	rec := postForm(router, "/login", url.Values{"username": {"ghost"}, "password": {"pw"}}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLoginRedirectsToNext(t *testing.T) {
	directory := newStubDirectory()
	registerUser(t, directory, "alice", "pw1")
	router := newTestRouter(directory)

	rec := postForm(router, "/login?next=%2Ftask%2Fadd", url.Values{"username": {"alice"}, "password": {"pw1"}}, nil)
	if loc := rec.Header().Get("Location"); loc != "/task/add" {
		t.Fatalf("redirect = %q, want /task/add", loc)
	}
}

func TestLoginRejectsExternalNext(t *testing.T) {
	directory := newStubDirectory()
	registerUser(t, directory, "alice", "pw1")
	router := newTestRouter(directory)

	for _, next := range []string{"//evil.example", "https://evil.example", "evil"} {
		rec := postForm(router, "/login?next="+url.QueryEscape(next), url.Values{"username": {"alice"}, "password": {"pw1"}}, nil)
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Fatalf("next=%q redirected to %q, want /", next, loc)
		}
	}
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	router := newTestRouter(newStubDirectory())

	rec := get(router, "/", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("anonymous status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2F" {
		t.Fatalf("anonymous redirect = %q, want /login?next=%%2F", loc)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	directory := newStubDirectory()
	registerUser(t, directory, "alice", "pw1")
	router := newTestRouter(directory)

	login := postForm(router, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}}, nil)
	cookies := login.Result().Cookies()

	logout := get(router, "/logout", cookies)
	if logout.Code != http.StatusFound {
		t.Fatalf("logout status = %d, want %d", logout.Code, http.StatusFound)
	}
	if loc := logout.Header().Get("Location"); loc != "/login" {
		t.Fatalf("logout redirect = %q, want /login", loc)
	}

	dashboard := get(router, "/", logout.Result().Cookies())
	if dashboard.Code != http.StatusFound {
		t.Fatalf("session should be invalid after logout, dashboard status = %d", dashboard.Code)
	}
}

func TestSignupCreatesUser(t *testing.T) {
	directory := newStubDirectory()
	router := newTestRouter(directory)

	rec := postForm(router, "/signup", url.Values{"username": {"bob"}, "password": {"pw2"}}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("signup status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("signup redirect = %q, want /login", loc)
	}

	created := directory.byName["bob"]
	if created == nil {
		t.Fatal("signup did not create the user")
	}
	if created.PasswordHash == "pw2" {
		t.Fatal("password stored in plaintext")
	}
	if !VerifyPassword(created.PasswordHash, "pw2") {
		t.Fatal("stored hash does not verify the original password")
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	directory := newStubDirectory()
	registerUser(t, directory, "alice", "pw1")
	router := newTestRouter(directory)

	rec := postForm(router, "/signup", url.Values{"username": {"alice"}, "password": {"other"}}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("signup status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/signup" {
		t.Fatalf("duplicate signup redirect = %q, want /signup", loc)
	}

	// 既存ユーザーは変更されない
	if !VerifyPassword(directory.byName["alice"].PasswordHash, "pw1") {
		t.Fatal("existing user was modified by duplicate signup")
	}
}

func TestSignupMissingFields(t *testing.T) {
	router := newTestRouter(newStubDirectory())

	rec := postForm(router, "/signup", url.Values{"username": {"alice"}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("signup status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
