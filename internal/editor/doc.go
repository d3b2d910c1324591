// Package editor models the editor side of notebook synchronization: live
// notebooks, their cells and cell text documents, and the event streams an
// editor host emits when they change.
//
// The sync engine only reads this model. Workspace is an in-memory
// implementation used by tests, scenarios and the CLI; it fires events in
// host order:
//   - NotebookOpened before the notebook's TextDocumentOpened events
//   - NotebookChanged before the TextDocumentOpened/Closed of added or removed cells
//   - NotebookClosed before the notebook's TextDocumentClosed events
//   - a language change as TextDocumentClosed followed by TextDocumentOpened
package editor
