package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapServiceError(t *testing.T) {
	cause := errors.New("connection refused")

	err := WrapServiceError(OpLookupFunctions, cause)

	require.Error(t, err)
	assert.Equal(t, "failed to look up global functions: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, WrapServiceError(OpLookupFunctions, nil))
}

func TestWrapPathError(t *testing.T) {
	cause := errors.New("permission denied")

	err := WrapPathError(OpLoadSource, "scripts/init.lua", cause)

	assert.Equal(t, "failed to load source scripts/init.lua: permission denied", err.Error())

	var serviceErr ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, OpLoadSource, serviceErr.Operation)
	assert.Equal(t, "scripts/init.lua", serviceErr.Path)
}
