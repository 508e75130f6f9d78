package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todocat/internal/localstore"
	"todocat/internal/model"
	"todocat/internal/todo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTask(id, owner, title, category string, age time.Duration) *model.Task {
	created := time.Now().Add(-age)
	return &model.Task{ID: id, OwnerID: owner, Title: title, Category: category, CreatedAt: created, UpdatedAt: created}
}

func TestTaskRepositoryOwnerScope(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	for _, task := range []*model.Task{
		newTask("a1", "alice", "Buy milk", "Work", 3*time.Minute),
		newTask("a2", "alice", "Read book", "Study", 2*time.Minute),
		newTask("b1", "bob", "Secret", "Private", time.Minute),
	} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tasks, err := repo.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].ID != "a2" || tasks[1].ID != "a1" {
		t.Errorf("ListByOwner(alice) = %+v", tasks)
	}

	if _, err := repo.FindByID(ctx, "alice", "b1"); !errors.Is(err, todo.ErrNotFound) {
		t.Errorf("FindByID(foreign) error = %v", err)
	}
	if err := repo.Delete(ctx, "alice", "b1"); !errors.Is(err, todo.ErrNotFound) {
		t.Errorf("Delete(foreign) error = %v", err)
	}
	foreign := newTask("b1", "alice", "Hijack", "Work", 0)
	if err := repo.Update(ctx, foreign); !errors.Is(err, todo.ErrNotFound) {
		t.Errorf("Update(foreign) error = %v", err)
	}
	if got, err := repo.FindByID(ctx, "bob", "b1"); err != nil || got.Title != "Secret" {
		t.Errorf("bob's task changed: %+v, %v", got, err)
	}
}

func TestTaskRepositoryUpdateAndClear(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	categories := NewCategoryRepository(db)
	ctx := context.Background()

	task := newTask("a1", "alice", "Buy milk", "Work", 0)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatal(err)
	}
	task.Completed = true
	task.Category = "Errands"
	if err := repo.Update(ctx, task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !task.Completed || task.Category != "Errands" {
		t.Errorf("Update() returned %+v", task)
	}

	if err := repo.Create(ctx, newTask("b1", "bob", "Other", "Work", 0)); err != nil {
		t.Fatal(err)
	}
	n, err := repo.DeleteAll(ctx, "alice")
	if err != nil || n != 1 {
		t.Fatalf("DeleteAll() = %d, %v", n, err)
	}
	if left, _ := repo.ListByOwner(ctx, "bob"); len(left) != 1 {
		t.Errorf("DeleteAll removed another owner's tasks")
	}

	names, err := categories.Names(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"Work", "Errands"}) {
		t.Errorf("Names() = %v, want categories kept after clear", names)
	}
}

func TestNewDBLogLevel(t *testing.T) {
	var out bytes.Buffer
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		WithLogOutput(&out), WithLogLevel(logger.Info))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if !strings.Contains(out.String(), "CREATE TABLE") {
		t.Errorf("info level did not log migrations:\n%s", out.String())
	}
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, "alice", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(ctx, "alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate Create() error = %v", err)
	}
	found, err := repo.FindByUsername(ctx, "alice")
	if err != nil || found.ID != user.ID {
		t.Errorf("FindByUsername() = %+v, %v", found, err)
	}

	tg, err := repo.UpsertFromTelegram(ctx, 42, "Ann", "")
	if err != nil {
		t.Fatal(err)
	}
	same, err := repo.UpsertFromTelegram(ctx, 42, "Anna", "K")
	if err != nil || same.ID != tg.ID {
		t.Errorf("UpsertFromTelegram() = %+v, %v", same, err)
	}
	users, err := repo.ListTelegramUsers(ctx)
	if err != nil || len(users) != 1 || users[0].FirstName != "Anna" {
		t.Errorf("ListTelegramUsers() = %+v, %v", users, err)
	}
}

func TestKVRepository(t *testing.T) {
	kv := NewKVRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := kv.Get(ctx, "tasks"); !errors.Is(err, localstore.ErrMissing) {
		t.Errorf("Get(missing) error = %v", err)
	}
	if err := kv.Put(ctx, "tasks", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := kv.Put(ctx, "tasks", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatal(err)
	}
	got, err := kv.Get(ctx, "tasks")
	if err != nil || string(got) != `[{"id":"1"}]` {
		t.Errorf("Get() = %s, %v", got, err)
	}
}
