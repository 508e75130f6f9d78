// Package api exposes the task list over a JSON REST interface.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todocat/internal/service"
)

// AnonymousOwner owns the tasks of callers without a token when auth is optional.
const AnonymousOwner = "anonymous"

// Server is the REST server.
type Server struct {
	tasks        *service.TaskService
	categories   *service.CategoryService
	auth         *service.AuthService
	authRequired bool
	router       *gin.Engine
}

// NewServer wires the routes.
func NewServer(tasks *service.TaskService, categories *service.CategoryService, authSvc *service.AuthService, authRequired bool) *Server {
	router := gin.Default()

	s := &Server{
		tasks:        tasks,
		categories:   categories,
		auth:         authSvc,
		authRequired: authRequired,
		router:       router,
	}

	router.Use(cors())
	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)

		todos := api.Group("/todos", s.authenticate)
		todos.GET("", s.handleList)
		todos.POST("", s.handleCreate)
		todos.DELETE("", s.handleClear)
		todos.PATCH("/:id", s.handleUpdate)
		todos.PUT("/:id", s.handleUpdate)
		todos.POST("/:id/toggle", s.handleToggle)
		todos.DELETE("/:id", s.handleDelete)

		api.GET("/categories", s.authenticate, s.handleCategories)
	}

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
