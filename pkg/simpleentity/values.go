package simpleentity

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Base field names handled on the Node struct itself rather than in Fields.
const (
	FieldTitle  = "title"
	FieldStatus = "status"
)

// Get returns the value of a base or bundle field.
func (n *Node) Get(field string) interface{} {
	switch field {
	case FieldTitle:
		return n.Title
	case FieldStatus:
		return n.Published
	}
	if n.Fields == nil {
		return nil
	}
	return n.Fields[field]
}

// Set assigns a base or bundle field.
func (n *Node) Set(field string, value interface{}) {
	switch field {
	case FieldTitle:
		if s, ok := value.(string); ok {
			n.Title = s
		} else {
			n.Title = fmt.Sprint(value)
		}
		return
	case FieldStatus:
		if b, ok := value.(bool); ok {
			n.Published = b
		}
		return
	}
	if n.Fields == nil {
		n.Fields = make(map[string]interface{})
	}
	n.Fields[field] = value
}

// IsEmptyValue reports whether v counts as "no value" for updates: nil,
// empty strings, false, numeric zero, nil pointers, empty slices and
// maps, and zero arrays such as uuid.Nil.
func IsEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case TextValue:
		return x.Value == ""
	case *TextValue:
		return x == nil || x.Value == ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Array:
		return rv.IsZero()
	}
	return false
}

// ParagraphIDs extracts paragraph ids from a reference field value. It
// accepts a single id, []uuid.UUID, []string, and the []interface{} of
// strings or {"target_id": ...} maps that a JSON round trip produces.
// Unparseable entries are skipped.
func ParagraphIDs(value interface{}) []uuid.UUID {
	var ids []uuid.UUID
	add := func(item interface{}) {
		switch x := item.(type) {
		case uuid.UUID:
			if x != uuid.Nil {
				ids = append(ids, x)
			}
		case string:
			if id, err := uuid.Parse(x); err == nil {
				ids = append(ids, id)
			}
		case map[string]interface{}:
			if target, ok := x["target_id"].(string); ok {
				if id, err := uuid.Parse(target); err == nil {
					ids = append(ids, id)
				}
			}
		}
	}

	switch v := value.(type) {
	case nil:
	case []uuid.UUID:
		for _, id := range v {
			add(id)
		}
	case []string:
		for _, id := range v {
			add(id)
		}
	case []interface{}:
		for _, item := range v {
			add(item)
		}
	default:
		add(v)
	}
	return ids
}

// ValidateNodeFields checks that every key of fields is defined for the
// bundle. Repositories call it before persisting a node.
func ValidateNodeFields(defs []*FieldDefinition, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	known := make(map[string]bool, len(defs))
	for _, def := range defs {
		known[def.FieldName] = true
	}
	for name := range fields {
		if !known[name] {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	return nil
}
