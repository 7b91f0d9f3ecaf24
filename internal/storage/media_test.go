package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dune", "dune"},
		{"The Left Hand of Darkness", "the-left-hand-of-darkness"},
		{"  Catch-22!  ", "catch-22"},
		{"Émile, ou De l'éducation", "mile-ou-de-l-ducation"},
		{"???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestCoverKey(t *testing.T) {
	pattern := regexp.MustCompile(`^books/dune-messiah-[0-9a-f-]{36}\.jpg$`)
	a := CoverKey("Dune Messiah")
	b := CoverKey("Dune Messiah")
	assert.Regexp(t, pattern, a)
	assert.NotEqual(t, a, b)

	assert.Regexp(t, `^books/[0-9a-f-]{36}\.jpg$`, CoverKey("!!!"))
}

func TestMedia_SaveAndRemove(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	m, err := NewMedia(root, "media/")
	require.NoError(t, err)
	ctx := context.Background()

	key := "books/dune.jpg"
	require.NoError(t, m.Save(ctx, key, []byte("jpeg bytes")))
	assert.True(t, m.Exists(key))

	data, err := os.ReadFile(filepath.Join(root, "books", "dune.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "books"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary upload file left behind")

	assert.Equal(t, "/media/books/dune.jpg", m.URL(key))
	assert.Equal(t, "", m.URL(""))

	require.NoError(t, m.Remove(ctx, key))
	assert.False(t, m.Exists(key))
	assert.NoError(t, m.Remove(ctx, key), "removing a missing file")
	assert.NoError(t, m.Remove(ctx, ""))
}

func TestMedia_RejectsEscapingKeys(t *testing.T) {
	m, err := NewMedia(t.TempDir(), "/media")
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "books/../../x", "/"} {
		err := m.Save(context.Background(), key, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}
