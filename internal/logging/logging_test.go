package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerbosity(t *testing.T) {
	quiet, err := New(Options{})
	require.NoError(t, err)
	assert.True(t, quiet.Enabled())
	assert.False(t, quiet.V(1).Enabled())

	verbose, err := New(Options{Verbose: true})
	require.NoError(t, err)
	assert.True(t, verbose.V(1).Enabled())
	assert.False(t, verbose.V(2).Enabled())

	Sync(verbose)
}

func TestNewJSON(t *testing.T) {
	log, err := New(Options{JSON: true})
	require.NoError(t, err)
	assert.True(t, log.Enabled())
	Sync(log)
}
