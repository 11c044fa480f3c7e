// Package notify delivers moderation notifications. The moderation core
// records notifications durably itself; delivery here is best-effort and a
// failure never blocks a moderation decision.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"modboard/backend/internal/models"
)

// Notifier sends one notification to one user.
type Notifier interface {
	Send(ctx context.Context, userID, template string, vars []string) error
}

// messages maps notification templates to user-facing text. Vars are
// substituted positionally.
var messages = map[string]string{
	models.NotifWarning:       "You received a moderation warning. Further violations will freeze your account.",
	models.NotifFreeze:        "Your account is frozen until %s due to upheld reports.",
	models.NotifBan:           "Your account has been permanently banned for repeated violations.",
	models.NotifReward:        "Thank you for your report. You received %s coins.",
	models.NotifThreadRemoved: "Your thread was removed after moderation review. Reasons: %s.",
	models.NotifRejected:      "Your report was reviewed and found not to be a violation. You may reply to it once.",
}

// RenderMessage builds the delivery text for a template.
func RenderMessage(template string, vars []string) string {
	text, ok := messages[template]
	if !ok {
		return template
	}
	args := make([]interface{}, len(vars))
	for i, v := range vars {
		args[i] = v
	}
	if strings.Count(text, "%s") != len(args) {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// TelegramNotifier delivers through a Telegram bot. The chat resolver maps
// a board user ID to the Telegram chat, since that mapping lives outside
// the moderation core.
type TelegramNotifier struct {
	Bot         *tgbotapi.BotAPI
	ResolveChat func(userID string) (int64, error)
	Log         *logrus.Logger
}

// NewTelegramNotifier connects the bot.
func NewTelegramNotifier(token string, resolveChat func(string) (int64, error), log *logrus.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TelegramNotifier{Bot: bot, ResolveChat: resolveChat, Log: log}, nil
}

// Send delivers the rendered message to the user's Telegram chat.
func (t *TelegramNotifier) Send(ctx context.Context, userID, template string, vars []string) error {
	chatID, err := t.ResolveChat(userID)
	if err != nil {
		return fmt.Errorf("resolve chat for %s: %w", userID, err)
	}
	msg := tgbotapi.NewMessage(chatID, RenderMessage(template, vars))
	if _, err := t.Bot.Send(msg); err != nil {
		t.Log.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"template": template,
		}).Warn("telegram delivery failed")
		return err
	}
	return nil
}

// LogNotifier writes notifications to the log only. Used when no delivery
// channel is configured, e.g. in the admin CLI.
type LogNotifier struct {
	Log *logrus.Logger
}

// Send logs the rendered message.
func (l *LogNotifier) Send(ctx context.Context, userID, template string, vars []string) error {
	log := l.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"user_id":  userID,
		"template": template,
	}).Info(RenderMessage(template, vars))
	return nil
}
