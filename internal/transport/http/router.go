package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/upwave/upwave/internal/handlers"
	mwauth "github.com/upwave/upwave/internal/middleware/auth"
)

type Deps struct {
	Auth          *mwauth.Authenticator
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	PostHandler   *handlers.PostHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/refresh", d.AuthHandler.Refresh)
	v1.POST("/logout", d.AuthHandler.Logout, d.Auth.RequireLogin)

	v1.GET("/search", d.SearchHandler.Search)

	users := v1.Group("/users")
	users.GET("/me", d.UserHandler.Me, d.Auth.RequireLogin)
	users.GET("/admin/users", d.UserHandler.AdminListUsers, d.Auth.AdminOnly)
	users.GET("/admin/:id", d.UserHandler.AdminGetUser, d.Auth.AdminOnly)
	users.DELETE("/admin/:id", d.UserHandler.AdminDeleteUser, d.Auth.AdminOnly)
	users.PUT("/:id", d.UserHandler.Update, d.Auth.RequireLogin)
	users.GET("/:id/posts", d.UserHandler.UserPosts, d.Auth.OptionalLogin)

	posts := v1.Group("/posts")
	posts.POST("/upload", d.PostHandler.UploadMedia, d.Auth.RequireLogin)
	posts.POST("/text", d.PostHandler.CreateText, d.Auth.RequireLogin)
	posts.GET("/feed", d.PostHandler.Feed, d.Auth.OptionalLogin)
	posts.GET("/:id", d.PostHandler.GetPost, d.Auth.OptionalLogin)
	posts.DELETE("/:id", d.PostHandler.Delete, d.Auth.RequireLogin)
	posts.POST("/:id/upvote", d.PostHandler.Upvote, d.Auth.RequireLogin)
	posts.DELETE("/:id/upvote", d.PostHandler.RemoveUpvote, d.Auth.RequireLogin)
	posts.POST("/:id/comments", d.PostHandler.Comment, d.Auth.RequireLogin)
}
