package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct{}

func TestTypeName(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"nil", nil, ""},
		{"named struct", reflect.TypeOf(sample{}), "github.com/gaborage/go-bricks-sdk/internal/reflection.sample"},
		{"double pointer", reflect.TypeOf(new(*sample)), "github.com/gaborage/go-bricks-sdk/internal/reflection.sample"},
		{"builtin", reflect.TypeOf(0), "int"},
		{"unnamed", reflect.TypeOf(map[string]int{}), "map[string]int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeName(tt.typ))
		})
	}
}

func TestShortTypeName(t *testing.T) {
	assert.Equal(t, "", ShortTypeName(nil))
	assert.Equal(t, "sample", ShortTypeName(reflect.TypeOf(&sample{})))
	assert.Equal(t, "[]string", ShortTypeName(reflect.TypeOf([]string{})))
}

func TestIndirect(t *testing.T) {
	assert.Equal(t, reflect.TypeOf(sample{}), Indirect(reflect.TypeOf(new(**sample))))
	assert.Equal(t, reflect.TypeOf(0), Indirect(reflect.TypeOf(0)))
}
