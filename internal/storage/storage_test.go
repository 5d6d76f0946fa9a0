package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageWriteCreatesParents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session", "nested")
	s := NewLocalStorage(dir)

	err := s.Write(context.Background(), "scene_01.json", []byte(`{"ok":true}`))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "scene_01.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestLocalStorageWriteOverwrites(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "all_content.txt", []byte("first")))
	require.NoError(t, s.Write(ctx, "all_content.txt", []byte("second")))

	data, err := os.ReadFile(s.Location("all_content.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorageWriteFailsWhenRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	s := NewLocalStorage(filepath.Join(root, "child"))
	err := s.Write(context.Background(), "scene_01.json", []byte("{}"))
	assert.Error(t, err)
}

func TestGCSStorageObjectNames(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		file     string
		wantLoc  string
		wantType string
	}{
		{
			name:     "withPrefix",
			prefix:   "scenes/run1",
			file:     "scene_03.json",
			wantLoc:  "gs://bucket/scenes/run1/scene_03.json",
			wantType: "application/json",
		},
		{
			name:     "noPrefix",
			prefix:   "",
			file:     "all_content.txt",
			wantLoc:  "gs://bucket/all_content.txt",
			wantType: "text/plain; charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &GCSStorage{bucket: "bucket", prefix: tt.prefix}
			assert.Equal(t, tt.wantLoc, s.Location(tt.file))
			assert.Equal(t, tt.wantType, contentType(tt.file))
		})
	}
}
