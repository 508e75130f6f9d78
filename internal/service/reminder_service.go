package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"todocat/internal/model"
	"todocat/internal/todo"
)

// ReminderService builds human-readable summaries of pending tasks.
type ReminderService struct {
	tasks      *TaskService
	categories *CategoryService
}

func NewReminderService(tasks *TaskService, categories *CategoryService) *ReminderService {
	return &ReminderService{tasks: tasks, categories: categories}
}

// DailySummary lists the user's pending tasks grouped by category, in the
// order the categories are known. The text is Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	pending, err := s.tasks.List(ctx, user.ID, todo.Filter{Status: todo.StatusPending})
	if err != nil {
		return "", err
	}
	known, err := s.categories.List(ctx, user.ID)
	if err != nil {
		return "", err
	}

	groups := make(map[string][]model.Task)
	for _, task := range pending {
		groups[task.Category] = append(groups[task.Category], task)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	if len(pending) == 0 {
		builder.WriteString("— nothing pending 🎉\n")
		return strings.TrimSpace(builder.String()), nil
	}

	builder.WriteString(fmt.Sprintf("🔥 <b>%d pending</b>\n", len(pending)))
	for _, name := range known {
		section := groups[name]
		if len(section) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("\n🏷 <b>%s</b>\n", html.EscapeString(name)))
		for _, task := range section {
			builder.WriteString(formatPending(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatPending(task model.Task, now time.Time) string {
	icon := "🟢"
	if now.Sub(task.CreatedAt) > 7*24*time.Hour {
		icon = "⏳"
	}
	return fmt.Sprintf("%s %s <code>%s</code>\n", icon, html.EscapeString(strings.TrimSpace(task.Title)), todo.ShortID(task.ID))
}
