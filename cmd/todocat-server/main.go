package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todocat/internal/api"
	"todocat/internal/auth"
	"todocat/internal/bot"
	"todocat/internal/config"
	"todocat/internal/repository"
	"todocat/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	taskSvc := service.NewTaskService(taskRepo, categoryRepo, service.TaskOptions{
		DefaultCategory:   cfg.DefaultCategory,
		DefaultCategories: cfg.DefaultCategories,
	})
	categorySvc := service.NewCategoryService(taskSvc)
	reminderSvc := service.NewReminderService(taskSvc, categorySvc)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Println("[warn] JWT_SECRET is not set, tokens will not survive a restart")
	}
	authSvc := service.NewAuthService(userRepo, auth.NewTokens(secret, cfg.TokenTTL))

	server := api.NewServer(taskSvc, categorySvc, authSvc, cfg.AuthRequired)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 1
	go func() {
		errCh <- server.Serve(ctx, cfg.ListenAddr)
	}()

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, categorySvc, reminderSvc)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}

		scheduler := service.NewSchedulerService(time.Local)
		report := func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("report: %v", err)
			}
		}
		switch {
		case cfg.ReportTime != "":
			if _, err := scheduler.ScheduleDaily(cfg.ReportTime, report); err != nil {
				log.Fatalf("schedule reports: %v", err)
			}
		case cfg.ReportInterval > 0:
			if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, report); err != nil {
				log.Fatalf("schedule reports: %v", err)
			}
		}
		scheduler.Start()
		defer scheduler.Stop()

		running++
		go func() {
			errCh <- telegramBot.Start(ctx)
		}()
	}

	log.Println("todocat server started.")
	var firstErr error
	for ; running > 0; running-- {
		// The first component to stop takes the others down with it.
		err := <-errCh
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		log.Printf("server stopped with error: %v", firstErr)
	}
	log.Println("Shutdown complete.")
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
