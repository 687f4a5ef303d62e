package user

import "github.com/gin-gonic/gin"

// contextKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const contextKey = "auth.user"

// IntoContext はログイン済みユーザーをリクエストコンテキストへ格納します。
func IntoContext(c *gin.Context, u *User) {
	c.Set(contextKey, u)
}

// FromContext はリクエストコンテキストからログイン済みユーザーを取り出します。
// RequireLogin ミドルウェアを通過していないリクエストでは ok=false になります。
func FromContext(c *gin.Context) (*User, bool) {
	v, exists := c.Get(contextKey)
	if !exists {
		return nil, false
	}
	u, ok := v.(*User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}
