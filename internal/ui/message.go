package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/tasks"
	"github.com/desertthunder/framelabel/internal/workspace"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFrameOpened MsgKind = iota
	MsgActionDone
	MsgStateChanged
	MsgNotification
	MsgProgressUpdate
	MsgExportComplete
	MsgUploadComplete
	MsgSaved
)

type actionResult struct {
	action workspace.Action
	err    error
}

type exportResult struct {
	status *models.ExportStatus
	path   string
	err    error
}

type uploadResult struct {
	result *models.UploadResult
	err    error
}

// frameOpenedMsg is the constructor for [MsgFrameOpened]
func frameOpenedMsg(err error) Msg {
	return Msg{kind: MsgFrameOpened, data: err}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(a workspace.Action, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{a, err}}
}

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg() Msg {
	return Msg{kind: MsgStateChanged}
}

// notificationMsg is the constructor for [MsgNotification]
func notificationMsg(n workspace.Notification) Msg {
	return Msg{kind: MsgNotification, data: n}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(status *models.ExportStatus, path string, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportResult{status, path, err}}
}

// uploadCompleteMsg is the constructor for [MsgUploadComplete]
func uploadCompleteMsg(result *models.UploadResult, err error) Msg {
	return Msg{kind: MsgUploadComplete, data: uploadResult{result, err}}
}

// savedMsg is the constructor for [MsgSaved], sent by the final flush before quitting.
func savedMsg(err error) Msg {
	return Msg{kind: MsgSaved, data: err}
}

// errOf returns the error payload of messages that carry only an error.
func errOf(m Msg) error {
	err, _ := m.data.(error)
	return err
}
