// Package services defines shared utilities consumed by the ingestion
// pipeline, the retrieval path and the platform integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, chat IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers classify
//     failures with errors.Is instead of matching message text.
//   - HTTPStatus, the single mapping from error markers to response codes.
package services
