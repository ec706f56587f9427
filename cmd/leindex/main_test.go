package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leindex/leindex/internal/errors"
)

func TestExitCodeMapsErrorCategoriesToSpecTable(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New(errors.InvalidInput, "x", "bad input")))
	assert.Equal(t, 1, exitCode(errors.New(errors.NotFound, "x", "missing")))
	assert.Equal(t, 1, exitCode(errors.New(errors.Unsupported, "x", "unsupported")))
	assert.Equal(t, 3, exitCode(errors.New(errors.Unavailable, "x", "busy")))
	assert.Equal(t, 3, exitCode(errors.New(errors.Timeout, "x", "slow")))
	assert.Equal(t, 2, exitCode(errors.New(errors.Internal, "x", "oops")))
	assert.Equal(t, 2, exitCode(errors.New(errors.Corrupted, "x", "damaged")))
}
