// Package protocol defines the wire shapes exchanged with the remote
// language process: notebook and text document items, the notebook
// didOpen/didChange/didSave/didClose params, the plain text document params
// used in cell-content mode, and registrations with their selectors.
package protocol
