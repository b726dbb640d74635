// Package bot runs the conversation loop. It consumes incoming messages from
// a messaging backend, routes slash commands, drives interview turns through
// the supervisor, and delivers analysis reports to the admin recipient.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danualab/InterviewPipe/internal/analyst"
	"github.com/danualab/InterviewPipe/internal/messaging"
	"github.com/danualab/InterviewPipe/internal/models"
	"github.com/danualab/InterviewPipe/internal/supervisor"
	"github.com/danualab/InterviewPipe/internal/util"
)

// DefaultMaxMessageLength is the Telegram hard limit on message length; the
// other transports tolerate chunks of this size as well.
const DefaultMaxMessageLength = 4096

const (
	helpMessage = "📚 راهنمای استفاده:\n\n" +
		"/start - شروع مجدد ربات\n" +
		"/help - نمایش این راهنما\n" +
		"/progress - نمایش پیشرفت مصاحبه\n" +
		"/clear - پاک کردن تاریخچه گفتگو\n\n" +
		"فقط پیام خود را ارسال کنید تا پاسخ دریافت کنید!"
	historyClearedMessage   = "✅ تاریخچه گفتگو پاک شد!"
	noProgressMessage       = "هنوز مصاحبه‌ای شروع نشده! برای شروع /start را بزنید."
	completedProgressNotice = "🎉 مصاحبه شما کامل شده است! برای شروع دوباره /start را بزنید."
	progressFormat          = "📊 وضعیت مصاحبه:\nسوال فعلی: %d از %d\nپیشرفت: %d٪\nپاسخ‌های ثبت‌شده: %d"
	reportFailureNotice     = "⚠️ ارسال گزارش تحلیل ناموفق بود. گزارش در آرشیو ذخیره شده است."
)

// Opts holds configuration options for the bot runtime.
type Opts struct {
	// Admin is the recipient that receives analysis reports. Empty disables
	// report delivery (reports are still archived).
	Admin string
	// MaxMessageLength caps outgoing message size; longer replies are
	// chunked at line boundaries.
	MaxMessageLength int
}

// Option defines a configuration option for the bot runtime.
type Option func(*Opts)

// WithAdminRecipient sets the recipient for analysis reports.
func WithAdminRecipient(admin string) Option {
	return func(o *Opts) { o.Admin = admin }
}

// WithMaxMessageLength overrides the outgoing message size cap.
func WithMaxMessageLength(limit int) Option {
	return func(o *Opts) { o.MaxMessageLength = limit }
}

// Bot connects a messaging service to the interview supervisor.
type Bot struct {
	svc    messaging.Service
	sup    *supervisor.Supervisor
	admin  string
	maxLen int
}

// New creates a bot runtime over the given messaging service and supervisor.
func New(svc messaging.Service, sup *supervisor.Supervisor, opts ...Option) *Bot {
	cfg := Opts{MaxMessageLength: DefaultMaxMessageLength}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}

	admin := ""
	if cfg.Admin != "" {
		canonical, err := svc.ValidateAndCanonicalizeRecipient(cfg.Admin)
		if err != nil {
			slog.Warn("Bot admin recipient invalid, report delivery disabled", "error", err, "admin", cfg.Admin)
		} else {
			admin = canonical
		}
	}

	return &Bot{
		svc:    svc,
		sup:    sup,
		admin:  admin,
		maxLen: cfg.MaxMessageLength,
	}
}

// Run starts the messaging service and consumes incoming messages until the
// context is cancelled or the responses channel closes. Turns are processed
// in arrival order; only report delivery runs concurrently.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	slog.Info("Bot runtime started", "report_delivery", b.admin != "")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Bot runtime stopping", "reason", ctx.Err())
			return nil
		case response, ok := <-b.svc.Responses():
			if !ok {
				slog.Info("Bot responses channel closed")
				return nil
			}
			b.handleResponse(ctx, response)
		}
	}
}

// handleResponse routes one incoming message.
func (b *Bot) handleResponse(ctx context.Context, response models.Response) {
	userID := response.From
	text := strings.TrimSpace(response.Body)
	if text == "" {
		slog.Debug("Bot ignoring empty message", "from", userID)
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, userID, text)
		return
	}
	b.handleTurn(ctx, userID, response.Body)
}

func (b *Bot) handleCommand(ctx context.Context, userID, text string) {
	command := strings.ToLower(strings.Fields(text)[0])
	// Group chats address commands as /start@BotName.
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	slog.Debug("Bot handling command", "from", userID, "command", command)

	switch command {
	case "/start":
		b.sup.Reset(userID)
		b.reply(ctx, userID, b.sup.Start(userID))
	case "/help":
		b.reply(ctx, userID, helpMessage)
	case "/restart", "/clear":
		b.sup.Reset(userID)
		b.reply(ctx, userID, historyClearedMessage)
	case "/progress":
		b.reply(ctx, userID, b.progressSummary(userID))
	default:
		slog.Debug("Bot ignoring unknown command", "from", userID, "command", command)
	}
}

// handleTurn feeds a regular message through the interview and replies.
func (b *Bot) handleTurn(ctx context.Context, userID, message string) {
	if err := b.svc.SendTypingIndicator(ctx, userID); err != nil {
		slog.Warn("Bot typing indicator failed", "error", err, "to", userID)
	}

	result := b.sup.HandleTurn(ctx, userID, message)
	b.reply(ctx, userID, result.Message)

	if result.ValidationMessage != "" {
		slog.Info("Bot interview validation outcome", "user_id", userID, "validation", result.ValidationMessage)
	}
	if result.ShouldTriggerAnalysis && result.Data != nil {
		slog.Info("Bot interview completed, generating report", "user_id", userID)
		go b.deliverReport(ctx, result.Data)
	}
}

// deliverReport generates the analysis report and sends it to the admin
// recipient. Generation archives the report, so a missing admin or a failed
// delivery loses nothing.
func (b *Bot) deliverReport(ctx context.Context, data *models.InterviewResult) {
	report := b.sup.GenerateReport(ctx, data)
	if b.admin == "" {
		slog.Info("Bot report archived, no admin recipient configured", "user_id", data.UserID)
		return
	}

	message := analyst.ReportHeader(data) + report
	if err := b.send(ctx, b.admin, message); err != nil {
		slog.Error("Bot report delivery failed", "error", err, "admin", b.admin, "user_id", data.UserID)
		if err := b.svc.SendMessage(ctx, b.admin, reportFailureNotice); err != nil {
			slog.Error("Bot report failure notice also failed", "error", err, "admin", b.admin)
		}
		return
	}
	slog.Info("Bot report delivered", "admin", b.admin, "user_id", data.UserID)
}

func (b *Bot) progressSummary(userID string) string {
	progress := b.sup.Progress(userID)
	if progress == nil {
		return noProgressMessage
	}
	if progress.State == models.StateCompleted {
		return completedProgressNotice
	}
	current := progress.CurrentQuestion
	if current > progress.TotalQuestions {
		current = progress.TotalQuestions
	}
	return fmt.Sprintf(progressFormat,
		current, progress.TotalQuestions, progress.ProgressPercentage, progress.AnswersCount)
}

// reply sends text to the user, logging delivery failures. There is no way
// to report a failed send back through the same channel.
func (b *Bot) reply(ctx context.Context, to, text string) {
	if err := b.send(ctx, to, text); err != nil {
		slog.Error("Bot reply delivery failed", "error", err, "to", to)
	}
}

// send chunks text at line boundaries and sends the chunks in order.
func (b *Bot) send(ctx context.Context, to, text string) error {
	for _, chunk := range util.SplitMessage(text, b.maxLen) {
		if err := b.svc.SendMessage(ctx, to, chunk); err != nil {
			return err
		}
	}
	return nil
}
