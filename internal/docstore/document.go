package docstore

import (
	"encoding/json"
	"reflect"
)

// Document is one record in a collection: a free-form field set. Documents
// returned by the store always carry their assigned key under "id".
type Document map[string]any

// ID returns the store-assigned document key, or "" when absent.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Decode unmarshals a document into a typed struct via its json tags.
func Decode(d Document, out any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Encode converts a typed struct into a Document via its json tags.
func Encode(in any) (Document, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	delete(d, "id")
	return d, nil
}

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Query selects documents of one collection by equality filters, in the
// order the store returns them. Query identity is its Key: two queries
// with the same key share one live listener.
type Query struct {
	Collection string
	Filters    []Filter
}

func NewQuery(collection string, filters ...Filter) *Query {
	return &Query{Collection: collection, Filters: filters}
}

// Key is the canonical identity of the query. Filters are JSON-encoded
// so field and value text can never collide into another query's key.
func (q Query) Key() string {
	raw, err := json.Marshal(struct {
		Collection string   `json:"c"`
		Filters    []Filter `json:"f,omitempty"`
	}{q.Collection, q.Filters})
	if err != nil {
		return q.Collection
	}
	return string(raw)
}

// Path names the queried resource for diagnostics.
func (q Query) Path() string {
	return q.Collection
}

func (q Query) matches(d Document) bool {
	for _, f := range q.Filters {
		if !reflect.DeepEqual(normalize(d[f.Field]), normalize(f.Value)) {
			return false
		}
	}
	return true
}

// hasOwnerFilter reports whether the query pins field to value, which the
// rules require for owner-scoped listing.
func (q Query) hasOwnerFilter(field, value string) bool {
	for _, f := range q.Filters {
		if f.Field == field {
			s, ok := normalize(f.Value).(string)
			return ok && s == value
		}
	}
	return false
}

// normalize maps a value through JSON so filter values compare equal to
// decoded document fields (ints become float64 and so on).
func normalize(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
