// Package queue holds pending ingestion jobs and drives the single worker
// that processes them.
//
// Jobs live in memory only. The Manager owns the ordered sequence: Enqueue
// appends at the tail and raises a wake-up signal, the worker peeks the head,
// runs one attempt through a Processor, and removes the head only after that
// attempt succeeds. A failed head stays where it is until the next signal
// (another Enqueue, or the optional failure retry timer). ClearAll discards
// everything, including a head that is mid-attempt; the worker notices the
// head changed and leaves the new sequence alone.
//
// Observers receive enqueue, finish and clear callbacks so metrics, history
// and notifications can follow the queue without touching its internals.
package queue
