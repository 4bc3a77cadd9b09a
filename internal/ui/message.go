package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/tasks"
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
	MsgSnapshotLoaded MsgKind = iota
	MsgProgressUpdate
	MsgExported
)

type snapshotLoaded struct {
	snapshot *models.Snapshot
	err      error
}

type exported struct {
	path string
	err  error
}

// snapshotLoadedMsg is the constructor for [MsgSnapshotLoaded]
func snapshotLoadedMsg(snapshot *models.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshotLoaded, data: snapshotLoaded{snapshot, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportedMsg is the constructor for [MsgExported]
func exportedMsg(path string, err error) Msg {
	return Msg{kind: MsgExported, data: exported{path, err}}
}
