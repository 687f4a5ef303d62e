// Package user はユーザーのモデルと users コレクションへのアクセスを提供します。
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrUsernameTaken は既に同じユーザー名が登録されている場合に返されます。
var ErrUsernameTaken = errors.New("username already taken")

// User は登録済みユーザーを表します。パスワードはbcryptハッシュのみ保持し、
// 平文は保存も出力もしません。
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Directory は users コレクションに対する検索・作成操作を提供します。
type Directory struct {
	collection *mongo.Collection
}

// NewDirectory は Directory を作成します。
func NewDirectory(collection *mongo.Collection) *Directory {
	return &Directory{collection: collection}
}

// Create は新しいユーザーを登録します。ユーザー名の一意性は
// ストレージのユニークインデックスで保証され、重複挿入は
// ErrUsernameTaken として返されます。
func (d *Directory) Create(ctx context.Context, username string, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := d.collection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return u, nil
}

// FindByUsername はユーザー名でユーザーを検索します。
// 見つからない場合は (nil, nil) を返します。
func (d *Directory) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := d.collection.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return &u, nil
}

// FindByID はIDでユーザーを検索します。
// 見つからない場合は (nil, nil) を返します。
func (d *Directory) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := d.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &u, nil
}

// ListOthers は指定したID以外の全ユーザーを返します。順序は保証しません。
func (d *Directory) ListOthers(ctx context.Context, excludeID string) ([]User, error) {
	cursor, err := d.collection.Find(ctx, bson.M{"_id": bson.M{"$ne": excludeID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}
