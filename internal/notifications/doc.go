// Package notifications delivers job and dependency events via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when no topic is set. Individual event
// families can be switched off in the [notifications] section. JobNotifier
// adapts the Service to the compression runner's notifier hook.
package notifications
