// Package store はMongoDBへの接続とコレクションの初期化を提供します。
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

// Store はアプリケーション全体で共有するMongoDBハンドルです。
// *mongo.Client は複数ゴルーチンから同時に利用できます。
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open はMongoDBへ接続し、疎通確認を行った上でStoreを返します。
func Open(ctx context.Context, uri string, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// EnsureIndexes は必要なインデックスを作成します。
// users.username のユニークインデックスにより、サインアップ時の
// 重複チェックと挿入の競合はストレージ側で原子的に拒否されます。
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create username index: %w", err)
	}
	return nil
}

// Users は users コレクションを返します。
func (s *Store) Users() *mongo.Collection {
	return s.db.Collection(usersCollection)
}

// Tasks は tasks コレクションを返します。
func (s *Store) Tasks() *mongo.Collection {
	return s.db.Collection(tasksCollection)
}

// Close はMongoDBとの接続を切断します。
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
