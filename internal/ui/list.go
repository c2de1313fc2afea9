package ui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/framelabel/internal/models"
)

var (
	_ list.Item = formatItem{}
)

var formatDescriptions = map[models.ExportFormat]string{
	models.FormatYOLO:      "classes.txt + normalized labels/*.txt",
	models.FormatCOCO:      "single annotations.json",
	models.FormatPascalVOC: "one XML file per image",
}

// formatItem wraps [models.ExportFormat] to implement [list.Item].
type formatItem struct {
	format models.ExportFormat
}

func (i formatItem) FilterValue() string { return i.format.DisplayName() }
func (i formatItem) Title() string       { return i.format.DisplayName() }
func (i formatItem) Description() string { return formatDescriptions[i.format] }

func formatItems() []list.Item {
	items := make([]list.Item, len(models.ExportFormats))
	for i, f := range models.ExportFormats {
		items[i] = formatItem{format: f}
	}
	return items
}
