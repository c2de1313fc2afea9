package workspace

import (
	"strings"

	"github.com/desertthunder/framelabel/internal/models"
)

// EventKind names a drawing widget event.
type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
	EventDeleted
	EventSelected
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	case EventSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Widget is the drawing surface annotations are captured on.
//
// Events fire only for user gestures. The programmatic calls (SetAnnotations, Select, Remove,
// Clear, CancelSelected) change what the widget shows without emitting events.
type Widget interface {
	On(kind EventKind, fn func(models.Annotation))
	SetAnnotations(annotations []models.Annotation)
	Select(id string)
	Remove(id string)
	Clear()
	CancelSelected()
	ToggleMode()
}

// Adapter forwards widget events to a [FrameStore], one store operation per event.
type Adapter struct {
	store     *FrameStore
	widget    Widget
	label     func() string
	onCreated func(models.Annotation)
}

// NewAdapter subscribes to the four widget events. label supplies the text attached to new
// annotations; nil or blank falls back to fallback, then to [models.DefaultLabel].
func NewAdapter(store *FrameStore, widget Widget, label func() string, fallback string) *Adapter {
	if strings.TrimSpace(fallback) == "" {
		fallback = models.DefaultLabel
	}
	a := &Adapter{store: store, widget: widget}
	a.label = func() string {
		if label != nil {
			if s := strings.TrimSpace(label()); s != "" {
				return s
			}
		}
		return fallback
	}

	widget.On(EventCreated, a.created)
	widget.On(EventUpdated, func(ann models.Annotation) { store.Update(ann) })
	widget.On(EventDeleted, func(ann models.Annotation) { store.Delete(ann.ID) })
	widget.On(EventSelected, func(ann models.Annotation) { store.Select(ann.ID) })
	return a
}

// OnCreated registers a hook that runs after a created annotation reached the store.
func (a *Adapter) OnCreated(fn func(models.Annotation)) { a.onCreated = fn }

func (a *Adapter) created(ann models.Annotation) {
	ann.Class = a.label()
	a.store.Create(ann)
	if a.onCreated != nil {
		a.onCreated(ann)
	}
}

// Sync pushes the store's list to the widget, used after a frame load.
func (a *Adapter) Sync() {
	a.widget.SetAnnotations(a.store.State().Annotations)
}

// SelectIndex selects the i-th annotation of the list in both the widget and the store.
func (a *Adapter) SelectIndex(i int) bool {
	list := a.store.State().Annotations
	if i < 0 || i >= len(list) {
		return false
	}
	a.widget.Select(list[i].ID)
	return a.store.Select(list[i].ID)
}

// RemoveSelected deletes the selected annotation from the widget and the store.
func (a *Adapter) RemoveSelected() bool {
	sel, ok := a.store.Selected()
	if !ok {
		return false
	}
	a.widget.Remove(sel.ID)
	return a.store.Delete(sel.ID)
}

// ClearAll empties the widget and the store.
func (a *Adapter) ClearAll() {
	a.widget.Clear()
	a.store.ClearAll()
}

// Cancel aborts an in-progress drawing and drops the selection.
func (a *Adapter) Cancel() {
	a.widget.CancelSelected()
	a.store.Select("")
}
