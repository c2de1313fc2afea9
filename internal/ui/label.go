package ui

import (
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

const maxSuggestions = 5

// labelInput is the class text field of the workspace with fuzzy completion over known classes.
type labelInput struct {
	input   textinput.Model
	focus   func(bool)
	mu      sync.Mutex
	value   string
	classes []string
}

func newLabelInput(initial string, classes []string) *labelInput {
	ti := textinput.New()
	ti.Prompt = "label> "
	ti.Placeholder = "object"
	ti.CharLimit = 64
	ti.SetValue(initial)

	l := &labelInput{input: ti, value: initial, focus: func(bool) {}}
	for _, c := range classes {
		l.AddClass(c)
	}
	return l
}

// Value is safe to call from any goroutine; the adapter reads it when a box is created.
func (l *labelInput) Value() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// AddClass records c as a completion candidate.
func (l *labelInput) AddClass(c string) {
	c = strings.TrimSpace(c)
	if c == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !slices.Contains(l.classes, c) {
		l.classes = append(l.classes, c)
	}
}

func (l *labelInput) Focused() bool { return l.input.Focused() }

func (l *labelInput) Focus() tea.Cmd {
	l.focus(true)
	return l.input.Focus()
}

func (l *labelInput) Blur() {
	l.input.Blur()
	l.focus(false)
	l.AddClass(l.Value())
}

// Suggestions returns the best class matches for the current text, best first.
func (l *labelInput) Suggestions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	pattern := strings.TrimSpace(l.value)
	if pattern == "" {
		return slices.Clone(l.classes[:min(len(l.classes), maxSuggestions)])
	}
	matches := fuzzy.Find(pattern, l.classes)
	out := make([]string, 0, min(len(matches), maxSuggestions))
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Complete replaces the text with the top suggestion.
func (l *labelInput) Complete() bool {
	s := l.Suggestions()
	if len(s) == 0 {
		return false
	}
	l.input.SetValue(s[0])
	l.input.CursorEnd()
	l.sync()
	return true
}

func (l *labelInput) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	l.sync()
	return cmd
}

func (l *labelInput) sync() {
	l.mu.Lock()
	l.value = l.input.Value()
	l.mu.Unlock()
}

func (l *labelInput) View() string {
	return l.input.View()
}
