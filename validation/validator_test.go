package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listParams struct {
	Container string `param:"container" validate:"required"`
	Limit     int    `query:"maxresults" validate:"omitempty,min=1,max=5000"`
	Mode      string `query:"mode" validate:"omitempty,oneof=full brief"`
}

func TestValidatorAcceptsValidStruct(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(&listParams{Container: "c", Limit: 10, Mode: "full"}))
}

func TestValidatorReportsWireNames(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&listParams{Limit: 9000, Mode: "other"})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 3)

	fields := make(map[string]string, len(ve.Errors))
	for _, fe := range ve.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "container is required", fields["container"])
	assert.Equal(t, "maxresults must be at most 5000", fields["maxresults"])
	assert.Equal(t, "mode must be one of [full brief]", fields["mode"])
	assert.Contains(t, err.Error(), "validation failed: ")
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
	single := &ValidationError{Errors: []FieldError{{Field: "a", Message: "a is required"}}}
	assert.Equal(t, "validation failed: a is required", single.Error())
}
