package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"modboard/backend/internal/models"
	"modboard/backend/internal/notify"
	"modboard/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Report{},
		&models.User{},
		&models.Notification{},
		&models.ContentRemoval{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// buildNotifier prefers Telegram when a bot token is configured, falling
// back to log-only delivery.
func buildNotifier(s *storage.Service, logger *logrus.Logger) notify.Notifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, notifications go to the log only")
		return &notify.LogNotifier{Log: logger}
	}

	resolveChat := func(userID string) (int64, error) {
		user, err := s.GetUserByID(userID)
		if err != nil {
			return 0, err
		}
		if user == nil || user.TelegramID == "" {
			return 0, fmt.Errorf("user %s has no telegram chat", userID)
		}
		return strconv.ParseInt(user.TelegramID, 10, 64)
	}

	notifier, err := notify.NewTelegramNotifier(token, resolveChat, logger)
	if err != nil {
		log.Fatalf("Failed to start Telegram notifier: %v", err)
	}
	return notifier
}

// main prepares the moderation store and retries undelivered notifications.
// The HTTP surface belongs to the host application; it mounts the engine
// from internal/moderation directly.
func main() {
	log.Println("Starting modboard moderation core...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb, logger)
	notifier := buildNotifier(s, logger)

	// Redelivery sweep: moderation decisions never wait on delivery, so
	// anything that failed at decision time is picked up here.
	ctx := context.Background()
	pending, err := s.UndeliveredNotifications(100)
	if err != nil {
		log.Fatalf("Failed to load undelivered notifications: %v", err)
	}
	redelivered := 0
	for i := range pending {
		n := &pending[i]
		if err := notifier.Send(ctx, n.UserID, n.Template, n.Vars); err != nil {
			logger.WithError(err).WithField("notification_id", n.ID).
				Warn("redelivery failed, keeping for next sweep")
			continue
		}
		if err := s.MarkNotificationDelivered(n.ID); err != nil {
			logger.WithError(err).WithField("notification_id", n.ID).
				Warn("failed to mark notification delivered")
			continue
		}
		redelivered++
	}

	logger.WithFields(logrus.Fields{
		"undelivered": len(pending),
		"redelivered": redelivered,
	}).Info("moderation core ready")
}
