// Package daemon coordinates the long-running fileslink process.
//
// It wires the metadata store, ingestion queue, bot front end, and the public
// HTTP server into a single lifecycle guarded by a flock-based lock so only
// one instance owns the metadata mirror at a time. The HTTP server answers
// download links, the optional listing page, health checks, and Prometheus
// scrapes.
//
// Keep orchestration here: ingestion and retrieval behavior live in their own
// packages while the daemon focuses on startup, shutdown, and routing.
package daemon
