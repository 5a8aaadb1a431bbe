// Package web serves the embedded browser chat UI.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var assets embed.FS

// Register mounts the character picker at /, the chat page at /chat/:id and
// the assets under /static
func Register(r gin.IRoutes) {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}

	r.GET("/", page(static, "index.html"))
	r.GET("/chat/:id", page(static, "chat.html"))
	r.StaticFS("/static", http.FS(static))
}

func page(static fs.FS, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := fs.ReadFile(static, name)
		if err != nil {
			c.Error(err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
	}
}
