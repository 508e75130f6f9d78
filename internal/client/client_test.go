package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"todocat/internal/api"
	"todocat/internal/auth"
	"todocat/internal/localstore"
	"todocat/internal/model"
	"todocat/internal/repository"
	"todocat/internal/service"
	"todocat/internal/todo"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	tasks := service.NewTaskService(repository.NewTaskRepository(db), repository.NewCategoryRepository(db), service.TaskOptions{
		DefaultCategories: []string{},
		Logger:            log.New(io.Discard, "", 0),
	})
	authSvc := service.NewAuthService(repository.NewUserRepository(db), auth.NewTokens("test-secret", time.Hour))
	srv := httptest.NewServer(api.NewServer(tasks, service.NewCategoryService(tasks), authSvc, true).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestClientRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	token, err := New(srv.URL, "", 0).Register(ctx, "alice", "secret-pass")
	if err != nil {
		t.Fatal(err)
	}
	c := New(srv.URL, token, time.Second)

	store := todo.NewStore(
		todo.WithBackend(c, todo.Optimistic),
		todo.WithAdapter(localstore.NewAdapter(localstore.NewMemoryKV(), 0, quiet())),
		todo.WithDefaultCategories(),
		todo.WithLogger(quiet()),
	)
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}

	created, err := store.Create(ctx, "Buy milk", "Errands")
	if err != nil {
		t.Fatal(err)
	}
	remote, err := c.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(remote) != 1 || remote[0].ID != created.ID {
		t.Fatalf("local id %q not reconciled with server %+v", created.ID, remote)
	}

	if _, err := store.ToggleCompleted(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	remote, _ = c.List(ctx)
	if !remote[0].Completed {
		t.Errorf("toggle not sent: %+v", remote[0])
	}

	names, err := c.Categories(ctx)
	if err != nil || len(names) != 1 || names[0] != "Errands" {
		t.Errorf("Categories() = %v, %v", names, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if remote, _ = c.List(ctx); len(remote) != 0 {
		t.Errorf("clear not sent: %+v", remote)
	}
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	if _, err := New(srv.URL, "", 0).List(ctx); !errors.Is(err, todo.ErrUnauthorized) {
		t.Errorf("anonymous List() error = %v", err)
	}
	if _, err := New(srv.URL, "", 0).Login(ctx, "nobody", "whatever"); !errors.Is(err, todo.ErrUnauthorized) {
		t.Errorf("Login() error = %v", err)
	}

	token, _ := New(srv.URL, "", 0).Register(ctx, "alice", "secret-pass")
	if _, err := New(srv.URL, "", 0).Register(ctx, "alice", "secret-pass"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate Register() error = %v", err)
	}

	c := New(srv.URL, token, 0)
	if err := c.Delete(ctx, "missing"); !errors.Is(err, todo.ErrNotFound) {
		t.Errorf("Delete() error = %v", err)
	}
	if _, err := c.Create(ctx, model.Task{Title: "  "}); !errors.Is(err, todo.ErrValidation) {
		t.Errorf("Create() error = %v", err)
	}
}

func TestOptimisticRollbackWhenServerIsDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer down.Close()
	ctx := context.Background()

	store := todo.NewStore(
		todo.WithBackend(New(down.URL, "token", time.Second), todo.Optimistic),
		todo.WithDefaultCategories(),
		todo.WithLogger(quiet()),
	)
	if _, err := store.Create(ctx, "Buy milk", ""); !errors.Is(err, todo.ErrPersistence) {
		t.Errorf("Create() error = %v", err)
	}
	if got := store.List(); len(got) != 0 {
		t.Errorf("optimistic task kept after failure: %+v", got)
	}
}
