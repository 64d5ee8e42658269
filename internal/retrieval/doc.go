// Package retrieval resolves link paths back to artifact bytes.
//
// The direct path asks the Bot API for the file and downloads it. When the
// Bot API refuses because the file exceeds its download limit, the service
// falls back to the large-object proxy, addressed by the storage channel id
// and the message id recorded at ingestion. Artifacts stored before message
// ids were recorded cannot take that route and are reported as unavailable
// without contacting the proxy.
//
// Errors returned by Resolve carry a services marker for status mapping and
// a short body suitable for the HTTP response; see PublicMessage.
package retrieval
