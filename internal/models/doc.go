// Package models defines the data exchanged with the annotation server and held by the workspace.
//
// # Annotations
//
// An [Annotation] is a labeled box on one frame. Its ID is assigned by whatever drew it (the canvas widget
// in the TUI, or the server for records created elsewhere) and is opaque to the client.
// Geometry is expressed in image pixels, matching the `x`, `y`, `width`, `height` keys the server stores.
//
// # Frames
//
// A [FrameState] is the per-frame view the workspace renders: index, annotations in draw order, dirty flag.
// [WorkspaceConfig] is fixed when a project is opened; the total frame count never changes while annotating.
//
// # Export & Upload
//
// [ExportRequest] and [ExportStatus] describe a server-side dataset export job.
// [UploadResult] is the JSON body returned by the multipart upload endpoint.
package models
