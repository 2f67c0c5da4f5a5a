package simpleentity_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

func TestIsEmptyValue(t *testing.T) {
	var nilNode *simpleentity.Node
	tests := []struct {
		name  string
		value interface{}
		empty bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"string", "x", false},
		{"string zero digit", "0", false},
		{"false", false, true},
		{"true", true, false},
		{"zero int", 0, true},
		{"int", 7, false},
		{"zero float", 0.0, true},
		{"empty slice", []uuid.UUID{}, true},
		{"slice", []string{"a"}, false},
		{"empty map", map[string]interface{}{}, true},
		{"nil pointer", nilNode, true},
		{"nil uuid", uuid.Nil, true},
		{"uuid", uuid.New(), false},
		{"empty text value", simpleentity.TextValue{Format: "basic_html"}, true},
		{"text value", simpleentity.TextValue{Value: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, simpleentity.IsEmptyValue(tt.value))
		})
	}
}

func TestParagraphIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name  string
		value interface{}
		want  []uuid.UUID
	}{
		{"nil", nil, nil},
		{"single", a, []uuid.UUID{a}},
		{"uuid slice", []uuid.UUID{a, b}, []uuid.UUID{a, b}},
		{"string slice", []string{a.String(), "garbage", b.String()}, []uuid.UUID{a, b}},
		{"decoded json", []interface{}{a.String(), map[string]interface{}{"target_id": b.String()}}, []uuid.UUID{a, b}},
		{"single string", a.String(), []uuid.UUID{a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, simpleentity.ParagraphIDs(tt.value))
		})
	}
}

func TestNodeGetSet(t *testing.T) {
	node := &simpleentity.Node{}
	node.Set(simpleentity.FieldTitle, "Hello")
	node.Set(simpleentity.FieldStatus, true)
	node.Set("field_x", 3)

	assert.Equal(t, "Hello", node.Title)
	assert.True(t, node.Published)
	assert.Equal(t, 3, node.Get("field_x"))
	assert.Nil(t, node.Get("field_missing"))
}
