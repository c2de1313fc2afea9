package workspace

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
)

// Action is a workspace operation bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionPrevious
	ActionNext
	ActionFirst
	ActionLast
	ActionToggleMode
	ActionDeleteSelected
	ActionNoObject
	ActionClearAll
	ActionShowShortcuts
	ActionCancel
	ActionSave
	ActionUndo
)

var actionNames = map[Action]string{
	ActionNone:           "none",
	ActionPrevious:       "previous",
	ActionNext:           "next",
	ActionFirst:          "first",
	ActionLast:           "last",
	ActionToggleMode:     "toggle_mode",
	ActionDeleteSelected: "delete_selected",
	ActionNoObject:       "no_object",
	ActionClearAll:       "clear_all",
	ActionShowShortcuts:  "show_shortcuts",
	ActionCancel:         "cancel",
	ActionSave:           "save",
	ActionUndo:           "undo",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// KeyMap holds the workspace shortcuts. It satisfies the bubbles help.KeyMap interface.
type KeyMap struct {
	Previous       key.Binding
	Next           key.Binding
	First          key.Binding
	Last           key.Binding
	ToggleMode     key.Binding
	DeleteSelected key.Binding
	NoObject       key.Binding
	ClearAll       key.Binding
	Shortcuts      key.Binding
	Cancel         key.Binding
	Save           key.Binding
	Undo           key.Binding
}

// DefaultKeyMap returns the standard bindings. Alt stands in for the Cmd modifier,
// which terminals do not report.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Previous:       key.NewBinding(key.WithKeys("left", "a", "A"), key.WithHelp("←/a", "previous frame")),
		Next:           key.NewBinding(key.WithKeys("right", "d", "D"), key.WithHelp("→/d", "next frame")),
		First:          key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first frame")),
		Last:           key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last frame")),
		ToggleMode:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle draw/select")),
		DeleteSelected: key.NewBinding(key.WithKeys("delete", "backspace"), key.WithHelp("del", "delete selected")),
		NoObject:       key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "no object, next")),
		ClearAll:       key.NewBinding(key.WithKeys("c", "C"), key.WithHelp("c", "clear all")),
		Shortcuts:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "shortcuts")),
		Cancel:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Save:           key.NewBinding(key.WithKeys("ctrl+s", "alt+s"), key.WithHelp("ctrl+s", "save")),
		Undo:           key.NewBinding(key.WithKeys("ctrl+z", "alt+z"), key.WithHelp("ctrl+z", "undo")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.ToggleMode, k.DeleteSelected, k.Save, k.Shortcuts}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Previous, k.Next, k.First, k.Last},
		{k.ToggleMode, k.DeleteSelected, k.NoObject, k.ClearAll},
		{k.Cancel, k.Save, k.Undo, k.Shortcuts},
	}
}

type route struct {
	binding key.Binding
	action  Action
}

// KeyboardRouter maps key events to actions.
type KeyboardRouter struct {
	keys      KeyMap
	routes    []route
	textFocus atomic.Bool
}

func NewKeyboardRouter(keys KeyMap) *KeyboardRouter {
	return &KeyboardRouter{
		keys: keys,
		routes: []route{
			{keys.Previous, ActionPrevious},
			{keys.Next, ActionNext},
			{keys.First, ActionFirst},
			{keys.Last, ActionLast},
			{keys.ToggleMode, ActionToggleMode},
			{keys.DeleteSelected, ActionDeleteSelected},
			{keys.NoObject, ActionNoObject},
			{keys.ClearAll, ActionClearAll},
			{keys.Shortcuts, ActionShowShortcuts},
			{keys.Cancel, ActionCancel},
			{keys.Save, ActionSave},
			{keys.Undo, ActionUndo},
		},
	}
}

// Keys returns the bindings, for help rendering.
func (r *KeyboardRouter) Keys() KeyMap { return r.keys }

// SetTextFocus marks whether a text input currently owns the keyboard.
func (r *KeyboardRouter) SetTextFocus(focused bool) { r.textFocus.Store(focused) }

// TextFocused reports the value last set by [KeyboardRouter.SetTextFocus].
func (r *KeyboardRouter) TextFocused() bool { return r.textFocus.Load() }

// Route returns the action bound to k, or [ActionNone] when nothing matches or a text input has focus.
//
// k is anything whose String form names the key the way bubbletea does ("left", "ctrl+s", "d"),
// a tea.KeyMsg included.
func (r *KeyboardRouter) Route(k fmt.Stringer) Action {
	if r.textFocus.Load() {
		return ActionNone
	}
	for _, rt := range r.routes {
		if key.Matches(k, rt.binding) {
			return rt.action
		}
	}
	return ActionNone
}

// KeyName is a plain key name usable with [KeyboardRouter.Route].
type KeyName string

func (k KeyName) String() string { return string(k) }
