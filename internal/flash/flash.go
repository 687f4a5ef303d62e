// Package flash は、リダイレクトをまたいで一度だけ表示する
// フラッシュメッセージをセッション上で管理します。
package flash

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Message は1件のフラッシュメッセージです。Kind はテンプレート側で
// 表示スタイルの切り替えに使います (success, danger, info)。
type Message struct {
	Kind string
	Text string
}

func init() {
	// クッキーストアは gob でシリアライズするため型登録が必要
	gob.Register(Message{})
}

// Set はフラッシュメッセージを追加します。
func Set(c *gin.Context, kind string, text string) {
	session := sessions.Default(c)
	session.AddFlash(Message{Kind: kind, Text: text})
	_ = session.Save()
}

// Take は未表示のフラッシュメッセージを全て取り出し、セッションから消去します。
func Take(c *gin.Context) []Message {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()

	messages := make([]Message, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(Message); ok {
			messages = append(messages, m)
		}
	}
	return messages
}
