package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the views. The workspace shortcuts live in
// workspace.KeyMap; these are the canvas gestures and the export/upload screens.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	left    key.Binding
	right   key.Binding
	nudge   key.Binding
	mark    key.Binding
	erase   key.Binding
	pick    key.Binding
	label   key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	next    key.Binding
	cycle   key.Binding
	more    key.Binding
	less    key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		left:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "cursor left")),
		right:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "cursor right")),
		nudge:   key.NewBinding(key.WithKeys("H", "J", "K", "L"), key.WithHelp("HJKL", "move box")),
		mark:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "corner/select")),
		erase:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "erase box")),
		pick:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "select box")),
		label:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "edit label")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		cycle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "frame selection")),
		more:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "quality up")),
		less:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "quality down")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right, k.nudge},
		{k.mark, k.erase, k.pick, k.label},
		{k.restart, k.quit},
	}
}

// canvasHelp is the help row shown under the workspace shortcuts.
func (k keyMap) canvasHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.left, k.right, k.mark, k.nudge, k.erase, k.pick, k.label}
}
