package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ChangeField names the tracked attribute a ChangeRecord describes.
type ChangeField string

// ChangeField values in the fixed order the diff engine evaluates them.
const (
	FieldEpisodesWatched ChangeField = "episodes_watched"
	FieldScore           ChangeField = "score"
	FieldStatus          ChangeField = "status"
	// FieldMetadata flags a server-side touch with no tracked field delta.
	FieldMetadata ChangeField = "metadata"
)

// MetadataUpdated is the new-value sentinel of a FieldMetadata change.
const MetadataUpdated = "updated"

// valueKind tags the scalar carried by a ChangeValue.
type valueKind uint8

const (
	valueNull valueKind = iota
	valueInt
	valueString
)

// ChangeValue is one old/new scalar of a ChangeRecord: an int, a string, or null.
type ChangeValue struct {
	kind valueKind
	num  int
	str  string
}

// IntValue wraps an integer field value.
func IntValue(n int) ChangeValue {
	return ChangeValue{kind: valueInt, num: n}
}

// StringValue wraps a string field value.
func StringValue(s string) ChangeValue {
	return ChangeValue{kind: valueString, str: s}
}

// NullValue returns the absent value.
func NullValue() ChangeValue {
	return ChangeValue{}
}

// IsNull reports whether the value is absent.
func (v ChangeValue) IsNull() bool {
	return v.kind == valueNull
}

// Int returns the integer payload when the value holds one.
func (v ChangeValue) Int() (int, bool) {
	return v.num, v.kind == valueInt
}

// String renders the value for display; null renders empty.
func (v ChangeValue) String() string {
	switch v.kind {
	case valueInt:
		return strconv.Itoa(v.num)
	case valueString:
		return v.str
	default:
		return ""
	}
}

// Equal reports value equality, including kind.
func (v ChangeValue) Equal(other ChangeValue) bool {
	return v == other
}

// MarshalJSON encodes the value as a plain JSON scalar.
func (v ChangeValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueInt:
		return json.Marshal(v.num)
	case valueString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON number, string, or null.
func (v *ChangeValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = NullValue()
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode change value: %w", err)
		}
		*v = StringValue(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode change value: %w", err)
	}
	*v = IntValue(n)
	return nil
}

// ChangeRecord is one field-level change of an existing entry.
type ChangeRecord struct {
	Field    ChangeField `json:"field"`
	OldValue ChangeValue `json:"old"`
	NewValue ChangeValue `json:"new"`
}

// MetadataChange builds the sentinel record for a silent server-side touch.
func MetadataChange() ChangeRecord {
	return ChangeRecord{
		Field:    FieldMetadata,
		OldValue: NullValue(),
		NewValue: StringValue(MetadataUpdated),
	}
}

// IsCompletion reports whether the record moves an entry to completed.
func (c ChangeRecord) IsCompletion() bool {
	return c.Field == FieldStatus && c.NewValue.String() == string(StatusCompleted)
}

// UpdateEntry pairs the new state of an entry with its non-empty change list.
type UpdateEntry struct {
	Item    CanonicalItem  `json:"anime"`
	Changes []ChangeRecord `json:"changes"`
}

// Completed reports whether any change in the entry moves it to completed.
func (u UpdateEntry) Completed() bool {
	for _, change := range u.Changes {
		if change.IsCompletion() {
			return true
		}
	}
	return false
}

// DiffReport is the classified delta between two snapshots. It is built once
// per diff call and not mutated afterwards.
type DiffReport struct {
	NewEntries  []CanonicalItem `json:"new_entries"`
	Updates     []UpdateEntry   `json:"updates"`
	HasChanges  bool            `json:"has_changes"`
	SummaryText string          `json:"summary_text"`
}

// PendingReport is a DiffReport stored by the orchestrator until one consumer commits it.
type PendingReport struct {
	ID        string     `json:"id"`
	Report    DiffReport `json:"report"`
	Locale    string     `json:"locale"`
	CreatedAt time.Time  `json:"created_at"`
}
