// package workspace implements the frame annotation workspace: the per-frame annotation store,
// the adapter that feeds it from a drawing widget, frame navigation, and the keyboard dispatch table.
//
// Nothing here touches a terminal. The TUI constructs a [Workspace], forwards key messages to
// [Workspace.HandleKey], and renders [Workspace.Snapshot].
//
// # Ordering
//
// Auto-saves run in the background and are serialized, so a later snapshot of a frame is never
// overtaken by an earlier one. Every navigation carries a token; starting a new one cancels the
// load of the previous one and its results are dropped with [shared.ErrSuperseded]. The save that
// flushes a dirty frame before leaving it is never cancelled.
package workspace
