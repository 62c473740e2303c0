package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorString(t *testing.T) {
	err := NewValidationError("menu document: expected object")
	assert.Equal(t, "VALIDATION: menu document: expected object", err.Error())

	wrapped := NewExternalError("fetch rates.json", fmt.Errorf("timeout"))
	assert.Equal(t, "EXTERNAL: fetch rates.json: timeout", wrapped.Error())
}

func TestIsType_ThroughWrapping(t *testing.T) {
	base := NewNotFoundError("canteens.json")
	err := fmt.Errorf("load snapshot: %w", base)

	assert.True(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeNotFound))
}
