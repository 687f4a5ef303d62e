package user

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/flash"
)

// Lister はチーム画面が必要とするユーザー一覧操作です。実装は Directory です。
type Lister interface {
	ListOthers(ctx context.Context, excludeID string) ([]User, error)
}

// TeamHandler は GET /team のハンドラーを返します。
// ログイン中のユーザーを除く全ユーザーを表示します。
func TeamHandler(directory Lister) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		members, err := directory.ListOthers(c.Request.Context(), u.ID)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		c.HTML(http.StatusOK, "team.html", gin.H{
			"Username": u.Username,
			"Members":  members,
			"Flashes":  flash.Take(c),
		})
	}
}
