package filestore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Put(context.Background(), "homework.PNG", []byte("fake image"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, mime, err := s.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image"), data)
	assert.Equal(t, "image/png", mime)
}

func TestLocalStoreRejectsUnsupportedType(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "notes.docx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Put(context.Background(), "noextension", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStoreRejectsEmptyFile(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "scan.pdf", nil)
	require.Error(t, err)
}

func TestLocalStoreGetMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "nope.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.Get(context.Background(), "../escape.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
