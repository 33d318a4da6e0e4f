package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func WriteFile(t *testing.T, filename string, contents string) {
	WriteFileBytes(t, filename, []byte(contents))
}

func WriteFileBytes(t *testing.T, filename string, contents []byte) {
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0777))
	require.NoError(t, os.WriteFile(filename, contents, 0644))
}

func AssertFileContents(t *testing.T, filename string, contents string) {
	actual, err := os.ReadFile(filename)
	if assert.NoError(t, err) {
		assert.Equal(t, contents, string(actual))
	}
}
