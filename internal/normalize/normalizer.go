// Package normalize turns a task's raw transaction feed into ordered, uniform domain events.
package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// Registrar accumulates identity references for later batch resolution.
type Registrar interface {
	Register(ref string)
}

// kindByType maps feed transaction tags to tracked event kinds.
// Both the tracker's native tags and the normalized names are accepted.
var kindByType = map[string]domain.EventKind{
	"projectcolumn": domain.EventKindColumnMove,
	"column-move":   domain.EventKindColumnMove,
	"status":        domain.EventKindStatusChange,
	"status-change": domain.EventKindStatusChange,
	"reassign":      domain.EventKindReassign,
	"title":         domain.EventKindTitleChange,
	"title-change":  domain.EventKindTitleChange,
}

// Normalizer filters and reshapes raw transactions for one team project.
type Normalizer struct {
	projectPHID string
	registrar   Registrar
}

// New creates a Normalizer that keeps column moves of projectPHID only.
func New(projectPHID string, registrar Registrar) *Normalizer {
	return &Normalizer{
		projectPHID: projectPHID,
		registrar:   registrar,
	}
}

// Normalize converts raw records into events, preserving input order.
// Unrecognized kinds and column moves of other projects are dropped.
func (n *Normalizer) Normalize(raw []domain.RawTransaction) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(raw))
	for i, data := range raw {
		record := gjson.ParseBytes(data)
		tag := record.Get("transactionType").String()
		kind, ok := kindByType[tag]
		if !ok {
			continue
		}

		event, keep, err := n.normalizeRecord(i, tag, kind, record)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		n.register(event.Actor)
		events = append(events, event)
	}
	return events, nil
}

// NormalizeFeed normalizes the logs of several tasks.
func (n *Normalizer) NormalizeFeed(feed map[int][]domain.RawTransaction) (map[int][]domain.Event, error) {
	out := make(map[int][]domain.Event, len(feed))
	for taskID, raw := range feed {
		events, err := n.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("normalize task %d: %w", taskID, err)
		}
		out[taskID] = events
	}
	return out, nil
}

func (n *Normalizer) normalizeRecord(
	index int,
	tag string,
	kind domain.EventKind,
	record gjson.Result,
) (domain.Event, bool, error) {
	if kind == domain.EventKindColumnMove && record.Get("oldValue.projectPHID").String() != n.projectPHID {
		return domain.Event{}, false, nil
	}

	at, err := parseEpoch(record.Get("dateCreated"))
	if err != nil {
		return domain.Event{}, false, &domain.DataShapeError{Index: index, Kind: tag, Field: "dateCreated"}
	}

	newValue := record.Get("newValue")
	if !newValue.Exists() {
		return domain.Event{}, false, &domain.DataShapeError{Index: index, Kind: tag, Field: "newValue"}
	}
	oldValue := record.Get("oldValue")

	event := domain.Event{
		Kind:  kind,
		At:    at,
		Actor: record.Get("authorPHID").String(),
	}

	switch kind {
	case domain.EventKindStatusChange, domain.EventKindTitleChange:
		event.OldValue = oldValue.String()
		event.NewValue = newValue.String()

	case domain.EventKindReassign:
		event.OldValue = oldValue.String()
		event.NewValue = newValue.String()
		n.register(event.OldValue)
		n.register(event.NewValue)

	case domain.EventKindColumnMove:
		column, ok := firstColumn(newValue)
		if !ok {
			return domain.Event{}, false, &domain.DataShapeError{Index: index, Kind: tag, Field: "newValue.columnPHIDs"}
		}
		event.NewValue = column
		event.OldValue, _ = firstColumn(oldValue)
	}

	return event, true, nil
}

func (n *Normalizer) register(ref string) {
	if ref != "" && n.registrar != nil {
		n.registrar.Register(ref)
	}
}

// firstColumn extracts the first column id of a column payload. The collection
// may be a single id, a list, or a keyed mapping; mappings yield their first
// value in document order and the rest is dropped.
func firstColumn(payload gjson.Result) (string, bool) {
	columns := payload.Get("columnPHIDs")
	if !columns.Exists() {
		columns = payload.Get("columnPHID")
	}

	switch {
	case columns.Type == gjson.String:
		return columns.Str, columns.Str != ""
	case columns.IsArray(), columns.IsObject():
		var first string
		columns.ForEach(func(_, value gjson.Result) bool {
			first = value.String()
			return false
		})
		return first, first != ""
	default:
		return "", false
	}
}
