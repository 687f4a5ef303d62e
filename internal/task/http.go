package task

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/flash"
	"github.com/yourusername/task-manager/internal/user"
)

// Store はハンドラーが必要とするタスク操作です。実装は Repository です。
type Store interface {
	Add(ctx context.Context, ownerID string, fields Fields) (*Task, error)
	ListForOwner(ctx context.Context, ownerID string, filter Filter) ([]Task, error)
	CountForOwner(ctx context.Context, ownerID string) (int64, error)
	CountCompletedForOwner(ctx context.Context, ownerID string) (int64, error)
	Get(ctx context.Context, taskID string, ownerID string) (*Task, error)
	Update(ctx context.Context, taskID string, ownerID string, fields Fields) error
	Complete(ctx context.Context, taskID string, ownerID string) error
	Delete(ctx context.Context, taskID string, ownerID string) error
}

// DashboardHandler は GET / のハンドラーを返します。
// 絞り込み済みの一覧と総数・完了数を表示します。2つの集計は独立した
// 読み取りであり、相互のトランザクション整合性は保証しません。
func DashboardHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		ctx := c.Request.Context()
		filter := FilterFromQuery(c.Query("filter"))

		tasks, err := store.ListForOwner(ctx, u.ID, filter)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		total, err := store.CountForOwner(ctx, u.ID)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		completed, err := store.CountCompletedForOwner(ctx, u.ID)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"Username":       u.Username,
			"Tasks":          tasks,
			"TotalTasks":     total,
			"CompletedTasks": completed,
			"CurrentFilter":  string(filter),
			"Flashes":        flash.Take(c),
		})
	}
}

// AddFormHandler は GET /task/add のハンドラーを返します。
func AddFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "task_form.html", gin.H{
			"Flashes": flash.Take(c),
		})
	}
}

// AddHandler は POST /task/add のハンドラーを返します。
func AddHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		fields, err := parseFields(c)
		if err != nil {
			c.HTML(http.StatusBadRequest, "task_form.html", gin.H{
				"Error": err.Error(),
			})
			return
		}

		if _, err := store.Add(c.Request.Context(), u.ID, fields); err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		flash.Set(c, "success", "タスクを追加しました")
		c.Redirect(http.StatusFound, "/")
	}
}

// EditFormHandler は GET /task/edit/:id のハンドラーを返します。
// 対象が見つからない（他ユーザー所有を含む）場合はダッシュボードへ戻します。
func EditFormHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		t, err := store.Get(c.Request.Context(), c.Param("id"), u.ID)
		if err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		if t == nil {
			flash.Set(c, "danger", "タスクが見つかりません")
			c.Redirect(http.StatusFound, "/")
			return
		}

		c.HTML(http.StatusOK, "task_form.html", gin.H{
			"Task":    t,
			"Flashes": flash.Take(c),
		})
	}
}

// EditHandler は POST /task/edit/:id のハンドラーを返します。
// 状態と所有者はこの操作では変更されません。
func EditHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		fields, err := parseFields(c)
		if err != nil {
			c.HTML(http.StatusBadRequest, "task_form.html", gin.H{
				"Error": err.Error(),
			})
			return
		}

		err = store.Update(c.Request.Context(), c.Param("id"), u.ID, fields)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				flash.Set(c, "danger", "タスクが見つかりません")
				c.Redirect(http.StatusFound, "/")
				return
			}
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		flash.Set(c, "success", "タスクを更新しました")
		c.Redirect(http.StatusFound, "/")
	}
}

// CompleteHandler は GET /task/complete/:id のハンドラーを返します。
// 完了済みタスクへの再実行も成功扱いです。
func CompleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		err := store.Complete(c.Request.Context(), c.Param("id"), u.ID)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				flash.Set(c, "danger", "タスクが見つかりません")
				c.Redirect(http.StatusFound, "/")
				return
			}
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		flash.Set(c, "success", "タスクを完了しました")
		c.Redirect(http.StatusFound, "/")
	}
}

// DeleteHandler は GET /task/delete/:id のハンドラーを返します。
// 対象が存在しない場合でもそのままダッシュボードへ戻します。
func DeleteHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := user.FromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		if err := store.Delete(c.Request.Context(), c.Param("id"), u.ID); err != nil {
			c.String(http.StatusInternalServerError, "internal error")
			return
		}

		flash.Set(c, "success", "タスクを削除しました")
		c.Redirect(http.StatusFound, "/")
	}
}

func parseFields(c *gin.Context) (Fields, error) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		return Fields{}, errors.New("タイトルを入力してください")
	}

	return Fields{
		Title:       title,
		Description: c.PostForm("description"),
		Priority:    c.PostForm("priority"),
		AssignedTo:  c.PostForm("assigned_to"),
	}, nil
}
