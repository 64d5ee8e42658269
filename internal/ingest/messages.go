package ingest

import (
	"errors"
	"fmt"
	"html"

	"github.com/dustin/go-humanize"

	"fileslink/internal/queue"
	"fileslink/internal/services"
)

func successMessage(link queue.Link) string {
	name := html.EscapeString(link.FileName)
	href := html.EscapeString(link.URL)
	return fmt.Sprintf(
		"✅ <b>File uploaded successfully!</b>\n\n📁 <b>File:</b> %s\n📊 <b>Size:</b> %s\n\n🔗 <b>Download Link:</b>\n<a href=\"%s\">%s</a>",
		name, humanize.IBytes(uint64(max(link.FileSize, 0))), href, href,
	)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrSourceResolution):
		text := "❌ Failed to process file: the source could not be read."
		if reason := services.UserMessage(err); reason != "" {
			text += "\n\n" + reason
		}
		return text
	case errors.Is(err, services.ErrStorageCommit):
		return "❌ Failed to process file: it could not be saved to storage."
	default:
		return "❌ Failed to process file. Please try again later."
	}
}
