package user

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

type stubLister struct {
	members    []User
	excludedID string
	err        error
}

func (s *stubLister) ListOthers(_ context.Context, excludeID string) ([]User, error) {
	s.excludedID = excludeID
	if s.err != nil {
		return nil, s.err
	}
	return s.members, nil
}

func newTeamRouter(lister Lister, current *User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	root := template.New("root")
	template.Must(root.New("team.html").Parse("members={{len .Members}} user={{.Username}}"))
	router.SetHTMLTemplate(root)
	router.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	router.Use(func(c *gin.Context) {
		IntoContext(c, current)
	})
	router.GET("/team", TeamHandler(lister))
	return router
}

func TestTeamListsOtherUsers(t *testing.T) {
	lister := &stubLister{members: []User{{ID: "u-bob", Username: "bob"}, {ID: "u-carol", Username: "carol"}}}
	router := newTeamRouter(lister, &User{ID: "u-alice", Username: "alice"})

	req := httptest.NewRequest(http.MethodGet, "/team", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("team status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "members=2 user=alice" {
		t.Fatalf("team body = %q", body)
	}
	if lister.excludedID != "u-alice" {
		t.Fatalf("excluded id = %q, want u-alice", lister.excludedID)
	}
}

func TestTeamStorageFailure(t *testing.T) {
	lister := &stubLister{err: errors.New("storage down")}
	router := newTeamRouter(lister, &User{ID: "u-alice", Username: "alice"})

	req := httptest.NewRequest(http.MethodGet, "/team", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("team status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
