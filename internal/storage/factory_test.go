package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want any
	}{
		{"json", "json://" + t.TempDir(), &FileSystem{}},
		{"yaml", "yaml://" + t.TempDir(), &FileSystem{}},
		{"directory", t.TempDir(), &SQLite{}},
		{"sqlite scheme", "sqlite://" + filepath.Join(t.TempDir(), "out"), &SQLite{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.url, false)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()

			assert.IsType(t, tt.want, store)
		})
	}
}

func TestOpenEmptyURL(t *testing.T) {
	_, err := Open("", false)
	require.Error(t, err)
}
