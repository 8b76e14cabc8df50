// Package notifications announces finished runs.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when no topic is set. Failed runs are
// sent with high priority; successful runs only when on_success is enabled.
package notifications
