package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todocat/internal/model"
	"todocat/internal/repository"
	"todocat/internal/service"
	"todocat/internal/todo"
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
	cbClearYes     = "clear:yes"
	cbClearNo      = "clear:no"
)

const (
	iconPending = "⬜"
	iconDone    = "✅"
	iconDelete  = "🗑"
)

// messenger is the part of tgbotapi.BotAPI the bot talks to.
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api        messenger
	updates    func() tgbotapi.UpdatesChannel
	stop       func()
	users      *repository.UserRepository
	tasks      *service.TaskService
	categories *service.CategoryService
	reminders  *service.ReminderService
}

func New(token string, users *repository.UserRepository, tasks *service.TaskService, categories *service.CategoryService, reminders *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, users, tasks, categories, reminders)
	b.updates = func() tgbotapi.UpdatesChannel {
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = 60
		return api.GetUpdatesChan(updateConfig)
	}
	b.stop = api.StopReceivingUpdates
	return b, nil
}

func newBot(api messenger, users *repository.UserRepository, tasks *service.TaskService, categories *service.CategoryService, reminders *service.ReminderService) *Bot {
	return &Bot{
		api:        api,
		users:      users,
		tasks:      tasks,
		categories: categories,
		reminders:  reminders,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updates := b.updates()

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.stop()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I did not get that. Try /add <text> #category or /help.")
	}

	log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "add":
		return b.handleAdd(ctx, msg, user)
	case "tasks":
		return b.handleListTasks(ctx, msg, user)
	case "done", "toggle":
		return b.handleToggle(ctx, msg, user)
	case "delete":
		return b.handleDelete(ctx, msg, user)
	case "clear":
		return b.askClearConfirmation(msg.Chat.ID)
	case "categories":
		return b.handleCategories(ctx, msg, user)
	case "report":
		return b.handleReport(ctx, msg, user)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /add &lt;text&gt; #category — add a task\n" +
		"• /tasks [category] [all|completed|pending] — list tasks\n" +
		"• /done &lt;id&gt; — mark a task done or pending again\n" +
		"• /delete &lt;id&gt; — delete a task\n" +
		"• /clear — delete every task\n" +
		"• /categories — known categories\n" +
		"• /report — the daily summary right now\n\n" +
		"Ids may be shortened to any unique prefix."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	text, category := parseAddArgs(msg.CommandArguments())
	task, err := b.tasks.Create(ctx, user.ID, text, category)
	if err != nil {
		if errors.Is(err, todo.ErrValidation) {
			return b.sendText(msg.Chat.ID, "Usage: /add Buy milk #Errands")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}

	log.Printf("[info] task created id=%s user=%s", task.ID, user.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s Added <code>%s</code> %s · <i>%s</i>",
		iconPending, todo.ShortID(task.ID), escape(task.Title), escape(task.Category)))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	filter, err := parseTasksArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /tasks [category] [all|completed|pending]")
	}
	log.Printf("[info] list tasks for user=%s filter=%+v", user.ID, filter)
	return b.sendTaskList(ctx, msg.Chat.ID, user, filter)
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	id, err := b.resolve(ctx, user, msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, describe(err, "Usage: /done <id>"))
	}
	task, err := b.tasks.Toggle(ctx, user.ID, id)
	if err != nil {
		return b.sendText(msg.Chat.ID, describe(err, ""))
	}
	return b.sendText(msg.Chat.ID, toggledText(task))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	id, err := b.resolve(ctx, user, msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, describe(err, "Usage: /delete <id>"))
	}
	if err := b.tasks.Delete(ctx, user.ID, id); err != nil {
		return b.sendText(msg.Chat.ID, describe(err, ""))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s Deleted <code>%s</code>.", iconDelete, todo.ShortID(id)))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	names, err := b.categories.List(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, describe(err, ""))
	}
	if len(names) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, name := range names {
		builder.WriteString("• " + escape(name) + "\n")
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	text, err := b.reminders.DailySummary(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the summary: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) askClearConfirmation(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Delete <b>every</b> task? This cannot be undone.")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(iconDelete+" Delete all", cbClearYes),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbClearNo),
	))
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		task, err := b.tasks.Toggle(ctx, user.ID, strings.TrimPrefix(data, cbTogglePrefix))
		if err != nil {
			return b.sendText(chatID, describe(err, ""))
		}
		if err := b.sendText(chatID, toggledText(task)); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user, todo.DefaultFilter())
	case strings.HasPrefix(data, cbDeletePrefix):
		id := strings.TrimPrefix(data, cbDeletePrefix)
		if err := b.tasks.Delete(ctx, user.ID, id); err != nil {
			return b.sendText(chatID, describe(err, ""))
		}
		if err := b.sendText(chatID, fmt.Sprintf("%s Deleted <code>%s</code>.", iconDelete, todo.ShortID(id))); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user, todo.DefaultFilter())
	case data == cbClearYes:
		if err := b.tasks.Clear(ctx, user.ID); err != nil {
			return b.sendText(chatID, describe(err, ""))
		}
		log.Printf("[info] tasks cleared user=%s", user.ID)
		return b.sendText(chatID, "All tasks deleted. Categories are kept.")
	case data == cbClearNo:
		return b.sendText(chatID, "Nothing was deleted.")
	default:
		return nil
	}
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User, filter todo.Filter) error {
	tasks, err := b.tasks.List(ctx, user.ID, filter)
	if err != nil {
		return b.sendText(chatID, describe(err, ""))
	}
	categories, err := b.categories.List(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, describe(err, ""))
	}

	text, markup := renderTaskList(tasks, categories)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err = b.api.Send(msg)
	return err
}

// SendDailyReports sends every Telegram user the summary of their pending tasks.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListTelegramUsers(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.reminders.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("build summary for user %d: %v", *user.TelegramID, err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			log.Printf("send summary to %d: %v", *user.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName)
}

func (b *Bot) resolve(ctx context.Context, user *model.User, ref string) (string, error) {
	tasks, err := b.tasks.List(ctx, user.ID, todo.DefaultFilter())
	if err != nil {
		return "", err
	}
	return todo.ResolveID(tasks, ref)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// renderTaskList groups tasks by category in registry order and builds one
// row of toggle/delete buttons per task.
func renderTaskList(tasks []model.Task, categories []string) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(tasks) == 0 {
		return "No tasks here. Add one with /add.", nil
	}

	groups := make(map[string][]model.Task)
	for _, task := range tasks {
		groups[task.Category] = append(groups[task.Category], task)
	}
	order := make([]string, 0, len(groups))
	listed := make(map[string]bool, len(categories))
	for _, name := range categories {
		listed[name] = true
		if len(groups[name]) > 0 {
			order = append(order, name)
		}
	}
	for _, task := range tasks {
		if !listed[task.Category] {
			listed[task.Category] = true
			order = append(order, task.Category)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Tasks</b>\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, name := range order {
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", escape(name)))
		for _, task := range groups[name] {
			icon := iconPending
			if task.Completed {
				icon = iconDone
			}
			builder.WriteString(fmt.Sprintf("%s <code>%s</code> %s\n", icon, todo.ShortID(task.ID), escape(task.Title)))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(icon+" "+shortTitle(task.Title, 24), cbTogglePrefix+task.ID),
				tgbotapi.NewInlineKeyboardButtonData(iconDelete, cbDeletePrefix+task.ID),
			))
		}
		builder.WriteByte('\n')
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(builder.String()), &markup
}

// parseAddArgs splits "Buy milk #Errands" into text and category. Only a
// trailing hashtag is taken as the category.
func parseAddArgs(args string) (string, string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", ""
	}
	last := fields[len(fields)-1]
	if len(last) > 1 && strings.HasPrefix(last, "#") {
		return strings.Join(fields[:len(fields)-1], " "), strings.TrimPrefix(last, "#")
	}
	return strings.Join(fields, " "), ""
}

// parseTasksArgs reads "[category] [status]". A trailing status word wins
// over a category of the same name.
func parseTasksArgs(args string) (todo.Filter, error) {
	fields := strings.Fields(args)
	filter := todo.DefaultFilter()
	if n := len(fields); n > 0 {
		if status, err := todo.ParseStatus(fields[n-1]); err == nil {
			filter.Status = status
			fields = fields[:n-1]
		}
	}
	filter.Category = strings.TrimPrefix(strings.Join(fields, " "), "#")
	return filter.Normalize()
}

func toggledText(task model.Task) string {
	if task.Completed {
		return fmt.Sprintf("%s «%s» is done.", iconDone, escape(task.Title))
	}
	return fmt.Sprintf("%s «%s» is pending again.", iconPending, escape(task.Title))
}

func describe(err error, usage string) string {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		return "Task not found."
	case errors.Is(err, todo.ErrValidation) && usage != "":
		return escape(usage) + "\n" + escape(err.Error())
	default:
		return fmt.Sprintf("Error: %s", escape(err.Error()))
	}
}

func shortTitle(title string, maxLen int) string {
	if utf8.RuneCountInString(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
