package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"todocat/internal/auth"
	"todocat/internal/repository"
	"todocat/internal/todo"
)

const ownerKey = "ownerID"

type createRequest struct {
	Text     string `json:"text"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

type updateRequest struct {
	Text      *string `json:"text"`
	Title     *string `json:"title"`
	Category  *string `json:"category"`
	Completed *bool   `json:"completed"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authenticate resolves the caller to an owner id.
func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if s.authRequired {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		c.Set(ownerKey, AnonymousOwner)
		c.Next()
		return
	}

	token, ok := auth.BearerToken(header)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID, err := s.auth.Authenticate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.Set(ownerKey, userID)
	c.Next()
}

func owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleList(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), owner(c), todo.Filter{
		Category: c.Query("category"),
		Status:   todo.Status(c.Query("status")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = req.Title
	}

	task, err := s.tasks.Create(c.Request.Context(), owner(c), text, req.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := todo.Patch{Title: req.Title, Category: req.Category, Completed: req.Completed}
	if patch.Title == nil {
		patch.Title = req.Text
	}

	task, err := s.tasks.Update(c.Request.Context(), owner(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggle(c *gin.Context) {
	task, err := s.tasks.Toggle(c.Request.Context(), owner(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), owner(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.tasks.Clear(c.Request.Context(), owner(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cleared"})
}

func (s *Server) handleCategories(c *gin.Context) {
	names, err := s.categories.List(c.Request.Context(), owner(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, todo.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, todo.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, todo.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, repository.ErrUserExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
