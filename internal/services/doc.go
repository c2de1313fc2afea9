// Package services talks to the annotation server over HTTP.
//
// # APIService
//
// [APIService] wraps an [http.Client] and a base URL. It offers raw Get/Post for the `api` debugging commands and
// typed helpers for every endpoint the workspace, export screen and upload wizard use:
//
//	GET  /api/annotations/{project}/{frame}     LoadAnnotations
//	POST /api/annotations/{project}/{frame}     SaveAnnotations
//	GET  /api/frame/{project}/{frame}           FrameImage
//	GET  /api/project/{project}/stats           ProjectStats
//	GET  /api/projects                          ListProjects
//	POST /api/export/{project}/{format}         StartExport
//	GET  /api/export/{project}/{format}/status  ExportStatus
//	GET  /api/export/{project}/{format}         DownloadExport
//	POST /upload                                Upload (multipart)
//
// # Authentication
//
// [NewHTTPClient] attaches a bearer token through golang.org/x/oauth2 when one is configured.
//
// # Error Handling
//
// Every typed helper returns a [*FetchError] on transport failures, non-2xx replies and undecodable bodies.
// It matches [shared.ErrFetch]; SaveAnnotations additionally wraps [shared.ErrSave].
// Project lookups that 404 wrap [shared.ErrProjectNotFound].
package services
