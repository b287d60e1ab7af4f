// Package dashboard turns the canonical dataset and the user's current
// selection into every derived view the front ends render.
package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalepa/evpop/grid"
	"github.com/zalepa/evpop/stats"
)

// View sizes offered for the makes ranking.
const (
	DefaultViewSize = 12
	ViewAll         = stats.All

	// MaxChartBars is the longest ranking still drawn as a bar chart.
	MaxChartBars = 40
)

// ViewSizes lists the ranking sizes a front end should offer, All last.
var ViewSizes = []int{5, 10, 12, 25, ViewAll}

// GridFields holds the grid filter controls as the user typed them. Year
// bounds stay text so a half-typed value round-trips unchanged.
type GridFields struct {
	Make        string `json:"make"`
	VehicleType string `json:"type"`
	YearMin     string `json:"yearMin"`
	YearMax     string `json:"yearMax"`
	Search      string `json:"search"`
}

// Filter converts the controls into a grid filter.
func (g GridFields) Filter() grid.Filter {
	return grid.Filter{
		Make:        g.Make,
		VehicleType: g.VehicleType,
		YearMin:     grid.ParseYearBound(g.YearMin),
		YearMax:     grid.ParseYearBound(g.YearMax),
		Search:      g.Search,
	}
}

// Selection is the whole of the user's interaction state. It is a plain
// comparable value: transitions build a new Selection and never modify one
// in place, so two selections can be compared with ==.
type Selection struct {
	// Make is the cross-filter make. Empty means no selection.
	Make       string          `json:"make"`
	ViewSize   int             `json:"viewSize"`
	MakeSearch string          `json:"makeSearch"`
	Grid       GridFields      `json:"grid"`
	Sort       grid.SortColumn `json:"sort"`
}

// NewSelection returns the state of a fresh session.
func NewSelection() Selection {
	return Selection{ViewSize: DefaultViewSize}
}

// Filtered reports whether a make is selected.
func (s Selection) Filtered() bool { return s.Make != "" }

func (s Selection) WithMake(mk string) Selection {
	s.Make = mk
	return s
}

func (s Selection) WithViewSize(n int) Selection {
	s.ViewSize = n
	return s
}

// WithMakeSearch stores the ranking search trimmed and lower-cased.
func (s Selection) WithMakeSearch(term string) Selection {
	s.MakeSearch = strings.ToLower(strings.TrimSpace(term))
	return s
}

func (s Selection) WithGrid(g GridFields) Selection {
	s.Grid = g
	return s
}

func (s Selection) WithSort(sc grid.SortColumn) Selection {
	s.Sort = sc
	return s
}

// EventType names a user interaction.
type EventType string

const (
	SelectMake     EventType = "select-make"
	Reset          EventType = "reset"
	SetFilterField EventType = "set-filter-field"
	SetSortColumn  EventType = "set-sort-column"
	SetViewSize    EventType = "set-view-size"
	SetMakeSearch  EventType = "set-make-search"
	SetSearch      EventType = "set-search"
)

// Grid filter field names accepted by SetFilterField.
const (
	FieldMake    = "make"
	FieldType    = "type"
	FieldYearMin = "yearMin"
	FieldYearMax = "yearMax"
	FieldSearch  = "search"
)

// Event is one user interaction. Only the fields its Type needs are read.
type Event struct {
	Type      EventType      `json:"type" validate:"required,oneof=select-make reset set-filter-field set-sort-column set-view-size set-make-search set-search"`
	Make      string         `json:"make,omitempty"`
	Field     string         `json:"field,omitempty"`
	Value     string         `json:"value,omitempty"`
	Column    string         `json:"column,omitempty"`
	Direction grid.Direction `json:"direction,omitempty"`
	Size      int            `json:"size,omitempty" validate:"gte=0"`
}

// ErrBadEvent is returned by Reduce for events it cannot apply.
var ErrBadEvent = errors.New("invalid event")

// Reduce returns the selection that follows s after e. Selecting the make
// that is already selected clears the selection. On error s is returned
// unchanged.
func Reduce(s Selection, e Event) (Selection, error) {
	switch e.Type {
	case SelectMake:
		if e.Make == s.Make {
			return s.WithMake(""), nil
		}
		return s.WithMake(e.Make), nil
	case Reset:
		return s.WithMake(""), nil
	case SetFilterField:
		g, err := setField(s.Grid, e.Field, e.Value)
		if err != nil {
			return s, err
		}
		return s.WithGrid(g), nil
	case SetSearch:
		g := s.Grid
		g.Search = e.Value
		return s.WithGrid(g), nil
	case SetSortColumn:
		if e.Column == "" {
			return s.WithSort(grid.SortColumn{}), nil
		}
		c, err := grid.LookupColumn(e.Column)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrBadEvent, err)
		}
		return s.WithSort(grid.SortColumn{Column: c.Key, Direction: grid.ParseDirection(string(e.Direction))}), nil
	case SetViewSize:
		if e.Size < 0 {
			return s, fmt.Errorf("%w: view size %d", ErrBadEvent, e.Size)
		}
		return s.WithViewSize(e.Size), nil
	case SetMakeSearch:
		return s.WithMakeSearch(e.Value), nil
	}
	return s, fmt.Errorf("%w: unknown type %q", ErrBadEvent, e.Type)
}

func setField(g GridFields, field, value string) (GridFields, error) {
	switch field {
	case FieldMake:
		g.Make = value
	case FieldType:
		g.VehicleType = value
	case FieldYearMin:
		g.YearMin = value
	case FieldYearMax:
		g.YearMax = value
	case FieldSearch:
		g.Search = value
	default:
		return g, fmt.Errorf("%w: unknown filter field %q", ErrBadEvent, field)
	}
	return g, nil
}
