package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errInvalidProduct = errors.New("product is not valid JSON")

// Product is the catalog record returned by the catalog webhook. The relay
// keeps the exact bytes it received and never validates or reshapes them.
type Product struct {
	raw json.RawMessage
}

// ProductFromJSON wraps b as a product. Any valid JSON document is accepted.
func ProductFromJSON(b []byte) (Product, error) {
	b = bytes.TrimSpace(b)
	if !json.Valid(b) {
		return Product{}, errInvalidProduct
	}
	return Product{raw: append(json.RawMessage(nil), b...)}, nil
}

// Raw returns the product bytes as received.
func (p Product) Raw() json.RawMessage {
	if len(p.raw) == 0 {
		return json.RawMessage("null")
	}
	return p.raw
}

func (p Product) MarshalJSON() ([]byte, error) {
	return p.Raw(), nil
}

func (p *Product) UnmarshalJSON(b []byte) error {
	p.raw = append(p.raw[:0:0], bytes.TrimSpace(b)...)
	return nil
}

// ID returns the "id" field for logging, or "" when absent.
func (p Product) ID() string { return p.field("id") }

// Name returns the "name" field for logging, or "" when absent.
func (p Product) Name() string { return p.field("name") }

func (p Product) field(key string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &fields); err != nil {
		return ""
	}
	v, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
