package domain

import "time"

// EventKind identifies the tracked field change carried by an Event.
type EventKind string

const (
	EventKindColumnMove   EventKind = "column-move"
	EventKindStatusChange EventKind = "status-change"
	EventKindReassign     EventKind = "reassign"
	EventKindTitleChange  EventKind = "title-change"
)

// Field returns the task field the kind changes.
func (k EventKind) Field() Field {
	switch k {
	case EventKindColumnMove:
		return FieldColumn
	case EventKindStatusChange:
		return FieldStatus
	case EventKindReassign:
		return FieldAssignee
	case EventKindTitleChange:
		return FieldTitle
	default:
		return ""
	}
}

// Event is one normalized change record from a task's transaction log.
// Empty OldValue or NewValue means the value is absent.
type Event struct {
	Kind     EventKind
	At       time.Time
	Actor    string
	OldValue string
	NewValue string
}

// RawTransaction is one record of the transaction feed exactly as received.
type RawTransaction []byte

// MarshalJSON keeps the record verbatim when a feed is re-encoded.
func (r RawTransaction) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of the record bytes.
func (r *RawTransaction) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
