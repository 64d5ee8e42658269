// Package notifications delivers relay events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Individual
// events can be muted through the [notifications] toggles; muted events are
// accepted and dropped.
//
// QueueNotifier adapts the Service to the queue observer surface so the
// worker reports failures and drained queues without knowing about ntfy.
package notifications
