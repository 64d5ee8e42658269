package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"fileslink/internal/linkcodec"
	"fileslink/internal/logging"
	"fileslink/internal/metadata"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

const (
	listPageSize   = 10
	findLimit      = 10
	showQueueLimit = 10
)

type command struct {
	name        string
	description string
}

var commands = []command{
	{"help", "show this help message"},
	{"list", "list recent file links. Usage: /list or /list <page>"},
	{"showqueue", "show current queue"},
	{"clearqueue", "clear the processing queue"},
	{"delete", "delete a file by id (prefix of the link)"},
	{"edit", "edit filename: /edit <id> <new_name.ext>"},
	{"find", "search files by name: /find <query>"},
	{"url", "store a remote file: /url <link> [name]"},
}

// Commands returns the menu published with setMyCommands.
func Commands() []telegram.BotCommand {
	out := make([]telegram.BotCommand, 0, len(commands))
	for _, c := range commands {
		out = append(out, telegram.BotCommand{Command: c.name, Description: c.description})
	}
	return out
}

func helpText() string {
	var b strings.Builder
	b.WriteString("These commands are supported:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "\n/%s - %s", c.name, c.description)
	}
	return b.String()
}

// parseCommand splits "/name@bot args" into a lower-cased name and the
// trimmed remainder.
func parseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i+1:]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (b *Bot) handleCommand(ctx context.Context, logger *slog.Logger, msg *telegram.Message, name, args string) {
	logger = logger.With(logging.String("command", name))
	logger.Debug("command received")
	chatID := msg.Chat.ID

	switch name {
	case "help", "start":
		b.reply(ctx, logger, chatID, helpText())
	case "list":
		b.reply(ctx, logger, chatID, b.listText(args))
	case "find":
		b.reply(ctx, logger, chatID, b.findText(args))
	case "showqueue":
		b.reply(ctx, logger, chatID, b.queueText())
	case "clearqueue":
		n := b.queue.ClearAll()
		logger.Info("queue cleared", logging.String(logging.FieldEventType, "queue_cleared"), logging.Int("discarded", n))
		b.reply(ctx, logger, chatID, fmt.Sprintf("Cleared %d item(s) from queue", n))
	case "delete":
		b.reply(ctx, logger, chatID, b.deleteText(logger, args))
	case "edit":
		b.reply(ctx, logger, chatID, b.editText(logger, args))
	case "url":
		link, name, _ := strings.Cut(args, " ")
		if link == "" {
			b.reply(ctx, logger, chatID, "Usage: /url <link> [name]")
			return
		}
		b.admitURL(ctx, logger, msg, link, strings.TrimSpace(name))
	default:
		b.reply(ctx, logger, chatID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) listText(args string) string {
	number := 1
	if field := strings.Fields(args); len(field) > 0 {
		if n, err := strconv.Atoi(field[0]); err == nil {
			number = n
		}
	}
	page := b.files.Paginate(number, listPageSize)
	if page.Total == 0 {
		return "No files found"
	}
	lines := []string{fmt.Sprintf("Page %d/%d (%d total)", page.Number, page.TotalPages, page.Total)}
	lines = append(lines, b.fileLines(page.Items)...)
	if page.TotalPages > 1 {
		lines = append(lines, "\nTip: use /list <page>")
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) findText(query string) string {
	if query == "" {
		return "Usage: /find <query>"
	}
	matches := b.files.Search(query, findLimit)
	if len(matches) == 0 {
		return "No matches found"
	}
	lines := b.fileLines(matches)
	if len(lines) == findLimit {
		lines = append(lines, fmt.Sprintf("(showing first %d results)", findLimit))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) fileLines(files []metadata.Artifact) []string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		link := b.cfg.LinkFor(linkcodec.Encode(f.UniqueID, f.FileName))
		lines = append(lines, fmt.Sprintf("- %s (%d bytes)\n%s", f.FileName, f.FileSize, link))
	}
	return lines
}

func (b *Bot) queueText() string {
	total, items := b.queue.Snapshot(showQueueLimit)
	text := fmt.Sprintf("Queue size: %d\n", total)
	if len(items) == 0 {
		return text + "(empty)"
	}
	return text + strings.Join(items, "\n")
}

func (b *Bot) deleteText(logger *slog.Logger, args string) string {
	id := firstField(args)
	if id == "" {
		return "Usage: /delete <id>"
	}
	if err := b.files.Delete(id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "File id not found: " + id
		}
		logging.ErrorWithContext(logger, "delete failed", "delete_failed",
			logging.String(logging.FieldUniqueID, id),
			logging.Error(err),
		)
		return "Failed to delete mapping for id: " + id
	}
	logger.Info("mapping deleted",
		logging.String(logging.FieldEventType, "file_deleted"),
		logging.String(logging.FieldUniqueID, id),
	)
	return "Deleted mapping for id: " + id
}

func (b *Bot) editText(logger *slog.Logger, args string) string {
	id, name, _ := strings.Cut(strings.TrimSpace(args), " ")
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return "Usage: /edit <id> <new_name.ext>"
	}
	if _, err := b.files.Rename(id, name); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return "File id not found: " + id
		}
		logging.ErrorWithContext(logger, "rename failed", "rename_failed",
			logging.String(logging.FieldUniqueID, id),
			logging.Error(err),
		)
		return "Failed to update filename for " + id
	}
	logger.Info("mapping renamed",
		logging.String(logging.FieldEventType, "file_renamed"),
		logging.String(logging.FieldUniqueID, id),
		logging.String("file_name", name),
	)
	return "Updated filename for " + id
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
