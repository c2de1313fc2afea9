// Package ui implements the interactive terminal screens using bubbletea's Elm architecture.
//
// Three screens are provided:
//  1. [AnnotateModel] : the annotation workspace, a [Canvas] for drawing boxes plus the label input
//  2. [ExportModel] : format choice, export options, live job progress and the downloaded archive
//  3. [UploadModel] : the three-step video upload wizard
//
// Each model implements the standard Init/Update/View pattern, receiving its own messages via the Msg union type.
// Long-running work (navigation, export jobs, uploads) runs in commands and goroutines; progress and
// notifications flow back through channels that are drained one message at a time.
//
// The workspace shortcuts come from workspace.KeyMap; canvas gestures use vim-style keys (h/j/k/l, enter, x)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
