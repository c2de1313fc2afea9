// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [HistoryRepository] : last visited frame per project, used to resume a workspace
//   - [DraftRepository] : annotations whose save to the server failed, kept until pushed or discarded
//
// Both tables are created by the embedded migrations in the shared package.
package repositories
