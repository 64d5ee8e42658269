// Package history journals ingestion attempts in SQLite.
//
// Every attempt the queue worker finishes, successful or not, becomes one row
// with the job summary, source kind, outcome, assigned identifier and error
// text. The journal is informational: the metadata mirror remains the source
// of truth for what can be retrieved, and losing history.db never affects
// links. Schema changes ship as numbered files under migrations/.
package history
