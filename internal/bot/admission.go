package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"fileslink/internal/logging"
	"fileslink/internal/queue"
	"fileslink/internal/telegram"
)

// mediaFromMessage picks the attachment a message carries. Photos arrive as
// several sizes and the largest one is stored.
func mediaFromMessage(msg *telegram.Message) (queue.MediaSource, bool) {
	switch {
	case msg.Document != nil:
		d := msg.Document
		return queue.MediaSource{Kind: telegram.MediaDocument, FileID: d.FileID, FileName: d.FileName, MimeType: d.MimeType, FileSize: d.FileSize}, true
	case len(msg.Photo) > 0:
		largest := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > largest.Width*largest.Height {
				largest = p
			}
		}
		return queue.MediaSource{Kind: telegram.MediaPhoto, FileID: largest.FileID, FileSize: largest.FileSize}, true
	case msg.Video != nil:
		v := msg.Video
		return queue.MediaSource{Kind: telegram.MediaVideo, FileID: v.FileID, FileName: v.FileName, MimeType: v.MimeType, FileSize: v.FileSize}, true
	case msg.Animation != nil:
		a := msg.Animation
		return queue.MediaSource{Kind: telegram.MediaAnimation, FileID: a.FileID, FileName: a.FileName, MimeType: a.MimeType, FileSize: a.FileSize}, true
	}
	return queue.MediaSource{}, false
}

// linkFromText returns the first http(s) link in text and whatever follows
// it as the display name.
func linkFromText(text string) (string, string, bool) {
	fields := strings.Fields(text)
	for i, field := range fields {
		parsed, err := url.Parse(field)
		if err != nil || parsed.Host == "" {
			continue
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			continue
		}
		return field, strings.Join(fields[i+1:], " "), true
	}
	return "", "", false
}

func (b *Bot) admit(ctx context.Context, logger *slog.Logger, msg *telegram.Message) {
	if media, ok := mediaFromMessage(msg); ok {
		b.admitMedia(ctx, logger, msg, media)
		return
	}
	if link, name, ok := linkFromText(msg.Text); ok {
		b.admitURL(ctx, logger, msg, link, name)
		return
	}
	b.reply(ctx, logger, msg.Chat.ID, "Send a file or an http(s) link to store it. Send /help for commands.")
}

func (b *Bot) admitMedia(ctx context.Context, logger *slog.Logger, msg *telegram.Message, media queue.MediaSource) {
	b.enqueue(ctx, logger, msg, func(status queue.Handle) (*queue.Job, error) {
		return queue.NewMediaJob(handleOf(msg), status, media, strings.TrimSpace(msg.Caption))
	})
}

func (b *Bot) admitURL(ctx context.Context, logger *slog.Logger, msg *telegram.Message, link, name string) {
	b.enqueue(ctx, logger, msg, func(status queue.Handle) (*queue.Job, error) {
		return queue.NewURLJob(handleOf(msg), status, link, name)
	})
}

// enqueue posts the acknowledgement first so the job can carry it as its
// status message, then hands the job to the queue.
func (b *Bot) enqueue(ctx context.Context, logger *slog.Logger, msg *telegram.Message, build func(queue.Handle) (*queue.Job, error)) {
	if _, err := build(queue.Handle{}); err != nil {
		logging.WarnWithContext(logger, "rejected submission", "submission_rejected", logging.Error(err))
		b.reply(ctx, logger, msg.Chat.ID, "Cannot queue this: "+err.Error())
		return
	}

	position := b.queue.Depth() + 1
	ack, err := b.api.SendMessage(ctx, msg.Chat.ID, fmt.Sprintf("Added to queue. Position: %d", position),
		telegram.SendOptions{ReplyToMessageID: msg.MessageID})
	if err != nil {
		logging.ErrorWithContext(logger, "failed to acknowledge submission", "ack_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file was not queued; resend it"),
		)
		return
	}

	status := queue.Handle{ChatID: ack.Chat.ID, MessageID: ack.MessageID}
	if status.ChatID == 0 {
		status.ChatID = msg.Chat.ID
	}
	job, err := build(status)
	if err != nil {
		logging.WarnWithContext(logger, "rejected submission", "submission_rejected", logging.Error(err))
		return
	}
	if _, err := b.queue.Enqueue(job); err != nil {
		logging.ErrorWithContext(logger, "enqueue failed", "enqueue_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
		return
	}
	logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.Source().SourceKind()),
		logging.Int("position", position),
	)
}

func handleOf(msg *telegram.Message) queue.Handle {
	return queue.Handle{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
}
