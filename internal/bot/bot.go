package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fileslink/internal/config"
	"fileslink/internal/logging"
	"fileslink/internal/metadata"
	"fileslink/internal/queue"
	"fileslink/internal/retry"
	"fileslink/internal/telegram"
)

// API is the slice of the Bot API the front end uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
	SetMyCommands(ctx context.Context, commands []telegram.BotCommand) error
}

// Queue accepts jobs and reports on pending work.
type Queue interface {
	Enqueue(job *queue.Job) (int, error)
	Snapshot(limit int) (int, []string)
	ClearAll() int
	Depth() int
}

// Files is the metadata surface behind the management commands.
type Files interface {
	Paginate(number, perPage int) metadata.Page
	Search(query string, limit int) []metadata.Artifact
	Delete(id string) error
	Rename(id, name string) (metadata.Artifact, error)
}

// Bot routes incoming messages.
type Bot struct {
	cfg     *config.Config
	api     API
	queue   Queue
	files   Files
	logger  *slog.Logger
	backoff retry.Policy
}

// New constructs a Bot.
func New(cfg *config.Config, api API, q Queue, files Files, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bot{
		cfg:     cfg,
		api:     api,
		queue:   q,
		files:   files,
		logger:  logging.NewComponentLogger(logger, "bot"),
		backoff: retry.Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second},
	}
}

// Run publishes the command menu and polls for updates until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.api.SetMyCommands(ctx, Commands()); err != nil {
		logging.WarnWithContext(b.logger, "failed to publish command menu", "commands_publish_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "commands still work when typed"),
		)
	}

	timeout := b.cfg.Telegram.PollTimeout
	var (
		offset   int64
		failures int
	)
	b.logger.Info("polling for updates", logging.Int("poll_timeout", timeout))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		updates, err := b.api.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			delay := b.backoff.Delay(failures)
			logging.WarnWithContext(b.logger, "getUpdates failed", "poll_failed",
				logging.Error(err),
				logging.Duration("retry_in", delay),
				logging.String(logging.FieldErrorHint, pollHint(err)),
			)
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			continue
		}
		failures = 0
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message != nil {
				b.HandleMessage(ctx, update.Message)
			}
		}
	}
}

func pollHint(err error) string {
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 409 {
		return "another process is polling with the same bot token"
	}
	return "check network access to the Bot API"
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// HandleMessage processes one inbound message.
func (b *Bot) HandleMessage(ctx context.Context, msg *telegram.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	logger := b.logger.With(
		logging.Int64(logging.FieldChatID, msg.Chat.ID),
		logging.Int64(logging.FieldUserID, msg.From.ID),
	)
	if !b.cfg.HasAccess(msg.Chat.ID, msg.From.ID) {
		logger.Info("ignoring message from unauthorized sender",
			logging.String(logging.FieldEventType, "access_denied"),
		)
		return
	}

	if cmd, args, ok := parseCommand(msg.Text); ok {
		b.handleCommand(ctx, logger, msg, cmd, args)
		return
	}
	b.admit(ctx, logger, msg)
}

func (b *Bot) reply(ctx context.Context, logger *slog.Logger, chatID int64, text string) *telegram.Message {
	sent, err := b.api.SendMessage(ctx, chatID, text, telegram.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		logging.WarnWithContext(logger, "failed to send reply", "reply_failed", logging.Error(err))
		return nil
	}
	return sent
}
