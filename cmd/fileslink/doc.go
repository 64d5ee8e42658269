// Package main hosts the fileslink CLI entrypoint and command graph.
//
// `fileslink serve` runs the bot, ingestion queue, and download server in the
// foreground. The remaining commands work directly on the local state: the
// metadata mirror (`files`), the ingestion journal (`history`), configuration
// scaffolding (`config`), and notification checks (`notify`). Commands that
// rewrite the mirror refuse to run while a daemon holds the instance lock.
package main
