// Package ingest turns a queued job into a stored artifact and a link.
//
// One attempt runs five steps in order: mark the status message as in
// progress, resolve the source into a storage-channel message (copying a
// platform attachment or downloading a URL and uploading it as a document),
// draw the identifier, commit metadata, and replace the status message with
// the link. The metadata commit is the point of no return: anything failing
// before it aborts the attempt with nothing recorded, and nothing after it
// can undo the commit.
package ingest
