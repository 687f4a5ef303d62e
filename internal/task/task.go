// Package task はタスクのモデルと tasks コレクションへのアクセス、
// およびタスク関連画面のハンドラーを提供します。
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// タスクの状態。Pending で作成され、Completed へのみ遷移します。
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// ErrTaskNotFound は対象タスクが存在しないか、所有者が一致しない場合に
// 返されます。存在有無を呼び出し側から区別できないようにしています。
var ErrTaskNotFound = errors.New("task not found")

// Task は1件のタスクを表します。UserID は作成者で、作成後は変わりません。
type Task struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Priority    string    `bson:"priority" json:"priority"`
	Status      string    `bson:"status" json:"status"`
	AssignedTo  string    `bson:"assigned_to" json:"assigned_to"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Fields は作成・更新時に呼び出し側が指定できる項目です。
// 状態・所有者・タイムスタンプはリポジトリ側で管理します。
type Fields struct {
	Title       string
	Description string
	Priority    string
	AssignedTo  string
}

// Filter はダッシュボードの絞り込み条件です。
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// FilterFromQuery は filter クエリパラメータを解釈します。
// 未知の値は all として扱います。
func FilterFromQuery(value string) Filter {
	switch Filter(value) {
	case FilterPending:
		return FilterPending
	case FilterCompleted:
		return FilterCompleted
	default:
		return FilterAll
	}
}

// ownerScope は単一タスク操作用のフィルターです。_id と user_id の両方で
// 絞り込むことで、他ユーザーのタスクは常に「存在しない」扱いになります。
func ownerScope(taskID string, ownerID string) bson.M {
	return bson.M{"_id": taskID, "user_id": ownerID}
}

// listScope は一覧・集計用のフィルターです。
func listScope(ownerID string, filter Filter) bson.M {
	query := bson.M{"user_id": ownerID}
	switch filter {
	case FilterPending:
		query["status"] = StatusPending
	case FilterCompleted:
		query["status"] = StatusCompleted
	}
	return query
}

// Repository は tasks コレクションに対するCRUD操作を提供します。
type Repository struct {
	collection *mongo.Collection
}

// NewRepository は Repository を作成します。
func NewRepository(collection *mongo.Collection) *Repository {
	return &Repository{collection: collection}
}

// Add は新しいタスクを Pending 状態で作成します。
func (r *Repository) Add(ctx context.Context, ownerID string, fields Fields) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
		Status:      StatusPending,
		AssignedTo:  fields.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.collection.InsertOne(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return t, nil
}

// ListForOwner は指定ユーザーのタスクを絞り込み条件付きで返します。
func (r *Repository) ListForOwner(ctx context.Context, ownerID string, filter Filter) ([]Task, error) {
	cursor, err := r.collection.Find(ctx, listScope(ownerID, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// CountForOwner は指定ユーザーのタスク総数を返します。
func (r *Repository) CountForOwner(ctx context.Context, ownerID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, listScope(ownerID, FilterAll))
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// CountCompletedForOwner は指定ユーザーの完了済みタスク数を返します。
func (r *Repository) CountCompletedForOwner(ctx context.Context, ownerID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, listScope(ownerID, FilterCompleted))
	if err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	return count, nil
}

// Get は所有者のタスクを1件取得します。存在しない場合と所有者が
// 一致しない場合はどちらも (nil, nil) を返します。
func (r *Repository) Get(ctx context.Context, taskID string, ownerID string) (*Task, error) {
	var t Task
	err := r.collection.FindOne(ctx, ownerScope(taskID, ownerID)).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// Update はタイトル・説明・優先度・担当者を更新し、updated_at を更新します。
// 状態と所有者はこの操作では変更しません。所有者フィルター付きの
// 単一更新なので、読み取ってから書くことによる競合はありません。
func (r *Repository) Update(ctx context.Context, taskID string, ownerID string, fields Fields) error {
	update := bson.M{"$set": bson.M{
		"title":       fields.Title,
		"description": fields.Description,
		"priority":    fields.Priority,
		"assigned_to": fields.AssignedTo,
		"updated_at":  time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, ownerScope(taskID, ownerID), update)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Complete はタスクを完了状態にします。既に完了済みのタスクに対しても
// 成功します（冪等）。
func (r *Repository) Complete(ctx context.Context, taskID string, ownerID string) error {
	update := bson.M{"$set": bson.M{
		"status":     StatusCompleted,
		"updated_at": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, ownerScope(taskID, ownerID), update)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete は所有者のタスクを削除します。対象が存在しない場合は何もしません。
func (r *Repository) Delete(ctx context.Context, taskID string, ownerID string) error {
	if _, err := r.collection.DeleteOne(ctx, ownerScope(taskID, ownerID)); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
