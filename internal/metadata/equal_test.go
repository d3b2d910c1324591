package metadata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", String("a"), String("a"), true},
		{"different string", String("a"), String("b"), false},
		{"int vs float", Int(2), Float(2), true},
		{"nan vs nan", Float(math.NaN()), Float(math.NaN()), true},
		{"nan vs number", Float(math.NaN()), Float(1), false},
		{"nil vs null", nil, Null{}, true},
		{"null vs empty object", Null{}, Object{}, false},
		{"key order", Object{"a": Int(1), "b": Int(2)}, Object{"b": Int(2), "a": Int(1)}, true},
		{"missing key", Object{"a": Int(1)}, Object{"b": Int(1)}, false},
		{"array order matters", Array{Int(1), Int(2)}, Array{Int(2), Int(1)}, false},
		{"nested", Object{"x": Array{Object{"y": Bool(true)}}}, Object{"x": Array{Object{"y": Bool(true)}}}, true},
		{"kind mismatch", String("1"), Int(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestObjectsEqualNilAndEmpty(t *testing.T) {
	assert.True(t, ObjectsEqual(nil, Object{}))
}
