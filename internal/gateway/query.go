package gateway

import "encoding/json"

// query mirrors the JSON query syntax accepted by the document API.
type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func (q query) String() string {
	data, _ := json.Marshal(q)
	return string(data)
}

// Equal matches documents whose attribute equals one of values.
func Equal(attribute string, values ...any) string {
	return query{Method: "equal", Attribute: attribute, Values: values}.String()
}

// Limit caps the number of returned documents.
func Limit(n int) string {
	return query{Method: "limit", Values: []any{n}}.String()
}

// Offset skips the first n documents.
func Offset(n int) string {
	return query{Method: "offset", Values: []any{n}}.String()
}

// OrderAsc sorts by attribute ascending.
func OrderAsc(attribute string) string {
	return query{Method: "orderAsc", Attribute: attribute}.String()
}
