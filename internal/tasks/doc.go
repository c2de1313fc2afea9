// Package tasks implements the long-running, screen-level flows of the client with real-time progress reporting.
//
// # Core Operations
//
//  1. [ExportSession] : dataset export
//     - Format and option selection with a client-side size estimate
//     - Starts the server-side job and polls its status endpoint until it completes or fails
//     - Streams the finished archive to disk
//
//  2. [UploadWizard] : project creation
//     - SelectFile → Configure → Confirm, strictly forward and back
//     - Validates the video extension and size before the first step can be left
//     - Sends the multipart upload and exposes the workspace link of the new project
//
//  3. [PushDrafts] : retries locally journaled annotations with a rate-limited worker pool
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
