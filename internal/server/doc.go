// Package server provides HTTP routing, middleware, and an in-memory development annotation server.
//
// # Routing
//
// [Mux] registers endpoints as [http.ServeMux] method patterns, so paths carry {project} and
// {frame} wildcards and a path asked with the wrong method answers 405. [Middleware] added with
// [Mux.Use] runs in the order it was added, the first one outermost.
//
// # Development Server
//
// [DevServer] serves every endpoint the client consumes from a [Store] held in memory:
//
//	GET    /api/projects                            → {projects: [...]}
//	GET    /api/project/{project}/stats             → ProjectStats
//	DELETE /api/project/{project}
//	GET    /api/frame/{project}/{frame}             → PNG
//	GET    /api/annotations/{project}/{frame}       → {annotations: [...]}
//	POST   /api/annotations/{project}/{frame}       ← {annotations: [...]}
//	DELETE /api/annotations/{project}/{frame}/{id}
//	POST   /api/export/{project}/{format}           ← {format, frame_selection, image_quality}
//	GET    /api/export/{project}/{format}/status    → ExportStatus
//	GET    /api/export/{project}/{format}           → zip archive
//	POST   /upload                                  ← multipart {video, project_name, frame_interval}
//
// Frames are rendered placeholders. Export jobs advance a fixed step each time their status is
// read, which makes polling deterministic in tests; the archive holds JPEG frames at the requested
// quality plus YOLO, COCO or Pascal VOC labels.
//
// # Middleware
//
// [RequestLogger] logs each request, [Recoverer] turns panics into 500s, and [RequireToken]
// checks the bearer token the client sends when server.token is configured.
//
// # Route Groups
//
// A [RouteGroup] answers several patterns from one handler and is registered with [Mux.Mount].
// [UploadHandler] is mounted this way.
package server
