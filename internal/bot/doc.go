// Package bot is the Telegram front end: it long-polls for updates, applies
// the access allow-list, turns attachments and links into queue jobs, and
// answers the management commands (/list, /find, /showqueue, /clearqueue,
// /delete, /edit).
//
// Updates are handled one at a time on the polling goroutine. Ingestion work
// itself happens on the queue worker, so a slow upload never delays command
// replies.
package bot
