package main

import (
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropdesk/internal/crop"
)

func newTestPublisher(t *testing.T) Publisher {
	t.Helper()
	root := t.TempDir()
	writeTestPNG(t, root, "photo.png", 1600, 900)
	return Publisher{
		BaseDir:   root,
		OutputDir: filepath.Join(root, "output"),
		Viewport:  crop.Dimensions{Width: 800, Height: 500},
		Spec:      crop.DefaultOutputSpec,
	}
}

func TestSessionStore(t *testing.T) {
	p := newTestPublisher(t)
	store := NewSessionStore()
	session, err := p.Open(context.Background(), "photo.png", crop.Dimensions{})
	require.NoError(t, err)

	id := store.Add("photo.png", session)
	assert.Equal(t, 1, store.Len())

	filename, got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", filename)
	assert.Same(t, session, got)

	_, _, err = store.Get("nope")
	assert.ErrorIs(t, err, errSessionNotFound)

	store.Remove(id)
	assert.Equal(t, 0, store.Len())
	assert.True(t, session.Closed())
	store.Remove(id)
}

func TestSessionStore_CloseAll(t *testing.T) {
	p := newTestPublisher(t)
	store := NewSessionStore()
	var sessions []*crop.Session
	for i := 0; i < 3; i++ {
		s, err := p.Open(context.Background(), "photo.png", crop.Dimensions{})
		require.NoError(t, err)
		store.Add("photo.png", s)
		sessions = append(sessions, s)
	}

	store.CloseAll()
	assert.Equal(t, 0, store.Len())
	for _, s := range sessions {
		assert.True(t, s.Closed())
	}
}

func TestPublisher_Open(t *testing.T) {
	p := newTestPublisher(t)

	s, err := p.Open(context.Background(), "photo.png", crop.Dimensions{})
	require.NoError(t, err)
	defer s.Close()
	assert.InDelta(t, 800, s.Display().Width, 1e-9)
	assert.InDelta(t, 450, s.Display().Height, 1e-9)

	s2, err := p.Open(context.Background(), "photo.png", crop.Dimensions{Width: 400, Height: 400})
	require.NoError(t, err)
	defer s2.Close()
	assert.InDelta(t, 400, s2.Display().Width, 1e-9)

	_, err = p.Open(context.Background(), "../photo.png", crop.Dimensions{})
	assert.Error(t, err)

	_, err = p.Open(context.Background(), "missing.png", crop.Dimensions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPublisher_Export(t *testing.T) {
	p := newTestPublisher(t)
	s, err := p.Open(context.Background(), "photo.png", crop.Dimensions{})
	require.NoError(t, err)

	path, n, err := p.Export(context.Background(), "photo.png", s)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "photo-"))
	assert.Equal(t, ".jpg", filepath.Ext(path))
	assert.True(t, s.Closed())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, n, info.Size())

	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 628, img.Bounds().Dy())
}

func TestOutputName(t *testing.T) {
	r := crop.Rect{X: 1, Y: 2, Width: 300, Height: 157}
	a := OutputName("dir/photo.png", r, crop.DefaultOutputSpec)
	b := OutputName("dir/photo.png", r, crop.DefaultOutputSpec)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "photo-"))
	assert.Equal(t, ".jpg", filepath.Ext(a))

	webp := crop.DefaultOutputSpec
	webp.Format = crop.FormatWebP
	assert.NotEqual(t, a, OutputName("dir/photo.png", r, webp))
	assert.Equal(t, ".webp", filepath.Ext(OutputName("dir/photo.png", r, webp)))
}

func TestPublisher_ExportRetryAfterWriteFailure(t *testing.T) {
	p := newTestPublisher(t)
	s, err := p.Open(context.Background(), "photo.png", crop.Dimensions{})
	require.NoError(t, err)
	defer s.Close()

	// A regular file where the output directory should be.
	blocked := p
	blocked.OutputDir = filepath.Join(p.BaseDir, "blocked")
	require.NoError(t, os.WriteFile(blocked.OutputDir, []byte("x"), 0644))

	_, _, err = blocked.Export(context.Background(), "photo.png", s)
	require.Error(t, err)
	assert.False(t, s.Closed())

	path, _, err := p.Export(context.Background(), "photo.png", s)
	require.NoError(t, err)
	assert.True(t, s.Closed())
	assert.FileExists(t, path)
}

func TestPublisher_ExportNamesFileAfterExportedRect(t *testing.T) {
	p := newTestPublisher(t)
	s, err := p.Open(context.Background(), "photo.png", crop.Dimensions{})
	require.NoError(t, err)
	moved, err := s.SetRect(crop.Rect{X: 5, Y: 5, Width: 300})
	require.NoError(t, err)

	path, _, err := p.Export(context.Background(), "photo.png", s)
	require.NoError(t, err)
	assert.Equal(t, OutputName("photo.png", moved, crop.DefaultOutputSpec), filepath.Base(path))
}
