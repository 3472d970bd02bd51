package domain

import (
	"encoding/json"

	"github.com/keboola/go-utils/pkg/orderedmap"
)

// Item is an element of a grouped row set: either a Row or a *GroupNode.
type Item interface {
	isItem()
}

// Row is one record of the grid's data source.
// Fields keep the order they had in the source document.
type Row struct {
	fields *orderedmap.OrderedMap
}

// NewRow creates a row from ordered field/value pairs
func NewRow(pairs ...orderedmap.Pair) Row {
	return Row{fields: orderedmap.FromPairs(pairs)}
}

// RowFromMap wraps an existing ordered map. The map is not copied.
func RowFromMap(m *orderedmap.OrderedMap) Row {
	return Row{fields: m}
}

func (Row) isItem() {}

// Get returns the value stored under field
func (r Row) Get(field string) (interface{}, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(field)
}

// Value returns the value stored under field, or nil
func (r Row) Value(field string) interface{} {
	v, _ := r.Get(field)
	return v
}

// Fields returns the row's field names in order
func (r Row) Fields() []string {
	if r.fields == nil {
		return nil
	}
	return r.fields.Keys()
}

// Len returns the number of fields
func (r Row) Len() int {
	return len(r.Fields())
}

// Copy returns a shallow copy of the row's fields.
func (r Row) Copy() *orderedmap.OrderedMap {
	out := orderedmap.New()
	for _, key := range r.Fields() {
		v, _ := r.fields.Get(key)
		out.Set(key, v)
	}
	return out
}

// MarshalJSON encodes the row as a JSON object preserving field order
func (r Row) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

// UnmarshalJSON decodes a JSON object into the row
func (r *Row) UnmarshalJSON(data []byte) error {
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	r.fields = m
	return nil
}

// Column describes one exported column
type Column struct {
	Field string `json:"field" yaml:"field"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Label returns the display label, falling back to the field name
func (c Column) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Field
}

// AggregateKind identifies how a column is summarized per group
type AggregateKind string

const (
	AggregateSum     AggregateKind = "sum"
	AggregateAverage AggregateKind = "average"
	AggregateCount   AggregateKind = "count"
)

// Valid reports whether k is a known aggregate kind
func (k AggregateKind) Valid() bool {
	switch k {
	case AggregateSum, AggregateAverage, AggregateCount:
		return true
	}
	return false
}

// Aggregate requests a summary of Field for every group
type Aggregate struct {
	Field     string        `json:"field" validate:"required"`
	Aggregate AggregateKind `json:"aggregate" validate:"required,oneof=sum average count"`
}

// AggregateResult holds the computed summaries of one field within a group
type AggregateResult struct {
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// GroupNode is one group of a grouped row set. Nodes nest one level per
// grouping field.
type GroupNode struct {
	Field      string                     `json:"field"`
	Value      interface{}                `json:"value"`
	Items      []Item                     `json:"-"`
	Aggregates map[string]AggregateResult `json:"aggregates,omitempty"`
}

func (*GroupNode) isItem() {}

// RecordKind tags a flattened export record
type RecordKind int

const (
	RecordData RecordKind = iota
	RecordGroupHeader
	RecordAggregate
)

func (k RecordKind) String() string {
	switch k {
	case RecordGroupHeader:
		return "group_header"
	case RecordAggregate:
		return "aggregate"
	default:
		return "data"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k RecordKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FlatRecord is the canonical unit handed to format projections.
// Synthetic records (group headers and aggregate rows) carry their label in
// the primary field.
type FlatRecord struct {
	Kind   RecordKind             `json:"kind"`
	Depth  int                    `json:"depth"`
	Values *orderedmap.OrderedMap `json:"values"`
}

// IsGroupHeader reports whether the record marks the start of a group
func (r FlatRecord) IsGroupHeader() bool { return r.Kind == RecordGroupHeader }

// IsAggregateRow reports whether the record summarizes a group
func (r FlatRecord) IsAggregateRow() bool { return r.Kind == RecordAggregate }

// IsSynthetic reports whether the record was generated rather than copied from a row
func (r FlatRecord) IsSynthetic() bool { return r.Kind != RecordData }

// Get returns the value stored under field
func (r FlatRecord) Get(field string) (interface{}, bool) {
	if r.Values == nil {
		return nil, false
	}
	return r.Values.Get(field)
}
