package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("malformed xref")
	err := fmt.Errorf("ingest: %w", &ExtractionError{Cause: cause})

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "extraction failed: malformed xref", extErr.Error())
}

func TestPersistenceError_Message(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  *PersistenceError
		want string
	}{
		{"bare", &PersistenceError{Cause: cause}, "persistence failed: connection reset"},
		{"with doc id", &PersistenceError{DocID: "china_air_doctrine_4", Cause: cause}, "persistence failed at china_air_doctrine_4: connection reset"},
		{"with code", &PersistenceError{DocID: "china_doctrine_0", Code: "23502", Cause: cause}, "persistence failed at china_doctrine_0 (code 23502): connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestConfigurationError_Message(t *testing.T) {
	err := &ConfigurationError{Field: "DATABASE_URL", Reason: "is not set"}
	assert.Equal(t, "invalid configuration: DATABASE_URL is not set", err.Error())
}

func TestErrInvalidInput(t *testing.T) {
	err := fmt.Errorf("%w: country is required", ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, errors.Is(ErrInvalidInput, errors.New("invalid input")))
}
