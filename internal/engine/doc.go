// Package engine implements client-side notebook synchronization.
//
// A Registry holds one Provider per remote registration. Providers listen
// to editor events and decide what the remote side must be told:
//
//   - NotebookSync mirrors whole notebooks with notebookDocument/didOpen,
//     didChange, didSave and didClose, keeping one SyncRecord per synced
//     notebook in its Store.
//   - CellContentSync mirrors matching cells as plain text documents.
//
// ARCHITECTURE:
//
// Single-writer handlers:
// Editor events are delivered one at a time on one goroutine, either
// directly by an editor.Workspace or through a Loop. Stores are owned by
// that goroutine and need no locks.
//
// Optimistic state, fire-and-forget sends:
// A handler updates the store first and then queues the notification on
// the Outbox. The Outbox delivers in FIFO order through optional
// Middleware to the Sender. Handlers never wait for delivery, and a failed
// delivery is logged and counted but neither retried nor rolled back; the
// remote mirror may stay out of date until the registration is recreated.
//
// Structural changes:
// The mirrored cell array is updated with one splice computed by the
// differ package. A reorder is sent as delete plus insert; cells on both
// sides of the splice keep their text documents open.
//
// Errors:
// Metadata that cannot be copied (cycles, regular expressions) drops the
// event with a SERIALIZATION SyncError and leaves the store untouched.
// Events for notebooks that are not synced are no-ops, not errors.
package engine
