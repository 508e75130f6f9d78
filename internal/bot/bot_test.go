package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todocat/internal/model"
	"todocat/internal/repository"
	"todocat/internal/service"
	"todocat/internal/todo"
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	bot   *Bot
	api   *fakeAPI
	tasks *service.TaskService
	users *repository.UserRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	users := repository.NewUserRepository(db)
	tasks := service.NewTaskService(repository.NewTaskRepository(db), repository.NewCategoryRepository(db), service.TaskOptions{
		DefaultCategories: []string{},
		Logger:            log.New(io.Discard, "", 0),
	})
	categories := service.NewCategoryService(tasks)
	api := &fakeAPI{}
	return fixture{
		bot:   newBot(api, users, tasks, categories, service.NewReminderService(tasks, categories)),
		api:   api,
		tasks: tasks,
		users: users,
	}
}

const chatID = 100

func command(text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: chatID, FirstName: "Ann"},
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID, FirstName: "Ann"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
		Data:    data,
	}
}

func (f fixture) owner(t *testing.T) string {
	t.Helper()
	user, err := f.users.UpsertFromTelegram(context.Background(), chatID, "Ann", "")
	if err != nil {
		t.Fatal(err)
	}
	return user.ID
}

func TestBotCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.bot.handleMessage(ctx, command("/add Buy milk #Errands")); err != nil {
		t.Fatal(err)
	}
	if text := f.api.last(t).Text; !strings.Contains(text, "Buy milk") || !strings.Contains(text, "Errands") {
		t.Errorf("add reply = %q", text)
	}
	f.bot.handleMessage(ctx, command("/add Read book"))

	owner := f.owner(t)
	list, err := f.tasks.List(ctx, owner, todo.DefaultFilter())
	if err != nil || len(list) != 2 {
		t.Fatalf("List() = %+v, %v", list, err)
	}
	milk := list[1]

	f.bot.handleMessage(ctx, command("/tasks"))
	sent := f.api.last(t)
	if !strings.Contains(sent.Text, "Errands") || !strings.Contains(sent.Text, "General") {
		t.Errorf("tasks reply = %q", sent.Text)
	}
	markup, ok := sent.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 2 {
		t.Fatalf("tasks markup = %#v", sent.ReplyMarkup)
	}

	f.bot.handleMessage(ctx, command("/done "+milk.ID[:6]))
	if text := f.api.last(t).Text; !strings.Contains(text, "is done") {
		t.Errorf("done reply = %q", text)
	}

	f.bot.handleMessage(ctx, command("/tasks Errands completed"))
	if text := f.api.last(t).Text; !strings.Contains(text, "Buy milk") || strings.Contains(text, "Read book") {
		t.Errorf("filtered tasks reply = %q", text)
	}

	if err := f.bot.handleCallback(ctx, callback(cbTogglePrefix+milk.ID)); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.tasks.Get(ctx, owner, milk.ID); got.Completed {
		t.Error("callback toggle not applied")
	}

	f.bot.handleMessage(ctx, command("/delete nope"))
	if text := f.api.last(t).Text; text != "Task not found." {
		t.Errorf("delete unknown reply = %q", text)
	}

	f.bot.handleMessage(ctx, command("/clear"))
	if _, ok := f.api.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Error("clear without confirmation buttons")
	}
	f.bot.handleCallback(ctx, callback(cbClearNo))
	if list, _ := f.tasks.List(ctx, owner, todo.DefaultFilter()); len(list) != 2 {
		t.Errorf("declined clear removed tasks: %+v", list)
	}
	f.bot.handleCallback(ctx, callback(cbClearYes))
	if list, _ := f.tasks.List(ctx, owner, todo.DefaultFilter()); len(list) != 0 {
		t.Errorf("confirmed clear kept tasks: %+v", list)
	}

	f.bot.handleMessage(ctx, command("/categories"))
	if text := f.api.last(t).Text; !strings.Contains(text, "Errands") || !strings.Contains(text, "General") {
		t.Errorf("categories reply = %q", text)
	}
}

func TestSendDailyReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.handleMessage(ctx, command("/add Buy milk #Errands"))
	f.api.sent = nil

	if err := f.bot.SendDailyReports(ctx); err != nil {
		t.Fatal(err)
	}
	msg := f.api.last(t)
	if msg.ChatID != chatID || !strings.Contains(msg.Text, "1 pending") {
		t.Errorf("report = %+v", msg)
	}
}

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		in, text, category string
	}{
		{"Buy milk #Errands", "Buy milk", "Errands"},
		{"  Buy   milk ", "Buy milk", ""},
		{"#1 priority", "#1 priority", ""},
		{"Call #", "Call #", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		text, category := parseAddArgs(tt.in)
		if text != tt.text || category != tt.category {
			t.Errorf("parseAddArgs(%q) = %q, %q", tt.in, text, category)
		}
	}
}

func TestParseTasksArgs(t *testing.T) {
	tests := []struct {
		in   string
		want todo.Filter
	}{
		{"", todo.Filter{Status: todo.StatusAll}},
		{"pending", todo.Filter{Status: todo.StatusPending}},
		{"Work", todo.Filter{Category: "Work", Status: todo.StatusAll}},
		{"#Home Office Completed", todo.Filter{Category: "Home Office", Status: todo.StatusCompleted}},
	}
	for _, tt := range tests {
		got, err := parseTasksArgs(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseTasksArgs(%q) = %+v, %v, want %+v", tt.in, got, err, tt.want)
		}
	}
}

func TestRenderTaskList(t *testing.T) {
	tasks := []model.Task{
		{ID: "t3", Title: "Pay bills", Category: "Work"},
		{ID: "t2", Title: "Read <book>", Category: "Study", Completed: true},
		{ID: "t1", Title: "Buy milk", Category: "Errands"},
	}
	text, markup := renderTaskList(tasks, []string{"Study", "Work"})

	study, work, errands := strings.Index(text, "Study"), strings.Index(text, "Work"), strings.Index(text, "Errands")
	if study < 0 || work < study || errands < work {
		t.Errorf("groups out of order:\n%s", text)
	}
	if !strings.Contains(text, "Read &lt;book&gt;") {
		t.Errorf("title not escaped:\n%s", text)
	}
	if markup == nil || len(markup.InlineKeyboard) != 3 || *markup.InlineKeyboard[0][0].CallbackData != cbTogglePrefix+"t2" {
		t.Errorf("markup = %#v", markup)
	}

	if text, markup := renderTaskList(nil, nil); markup != nil || !strings.Contains(text, "No tasks") {
		t.Errorf("empty render = %q, %v", text, markup)
	}
}
