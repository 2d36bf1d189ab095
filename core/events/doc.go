// Package events defines the typed event contract between the turn
// orchestrator and its consumers (typically a conversation UI).
//
// Event kinds:
//
//   - status.changed: the speech engine's status moved to a new phase.
//   - transcript.interim_updated: the live interim transcript changed;
//     an empty transcript clears the display.
//   - conversation.message_appended: a message was appended to the log.
//   - turn.thinking_changed: the artificial response delay started or ended.
//   - engine.error: a recognition or response error was absorbed into the
//     error status.
//
// Events are point-in-time values; consumers must not retain references to
// mutable state through them.
package events
