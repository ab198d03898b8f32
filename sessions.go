package main

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cropdesk/internal/crop"
)

var errSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	filename string
	session  *crop.Session
}

// SessionStore keeps the live editing sessions of the web editor.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]sessionEntry)}
}

func (s *SessionStore) Add(filename string, session *crop.Session) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sessionEntry{filename: filename, session: session}
	return id
}

func (s *SessionStore) Get(id string) (string, *crop.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return e.filename, e.session, nil
}

// Remove closes and forgets the session. Unknown ids are ignored.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		e.session.Close()
	}
}

// CloseAll ends every session, releasing their source images.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	entries := s.sessions
	s.sessions = make(map[string]sessionEntry)
	s.mu.Unlock()
	for _, e := range entries {
		e.session.Close()
	}
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Publisher opens sessions over files under BaseDir and writes exported
// crops to OutputDir.
type Publisher struct {
	BaseDir   string
	OutputDir string
	Viewport  crop.Dimensions
	Spec      crop.OutputSpec
}

// resolve returns the path of filename inside BaseDir, rejecting paths that
// escape it.
func (p Publisher) resolve(filename string) (string, error) {
	if !filepath.IsLocal(filename) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(p.BaseDir, filename), nil
}

func (p Publisher) Open(ctx context.Context, filename string, viewport crop.Dimensions) (*crop.Session, error) {
	sourcePath, err := p.resolve(filename)
	if err != nil {
		return nil, err
	}
	if viewport == (crop.Dimensions{}) {
		viewport = p.Viewport
	}
	log.Ctx(ctx).Info().Str("filename", filename).Stringer("viewport", viewport).Msg("opening session")
	src, err := crop.Load(sourcePath)
	if err != nil {
		return nil, err
	}
	return crop.NewSession(src, viewport, p.Spec)
}

// OutputName derives the output file name from the source name and the
// committed rectangle, so re-exporting the same crop overwrites the same file.
func OutputName(filename string, r crop.Rect, spec crop.OutputSpec) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	sum := md5.Sum([]byte(r.String() + spec.String()))
	return fmt.Sprintf("%s-%x%s", base, sum[:6], spec.Format.Ext())
}

// Export encodes the session's crop and writes it to the output directory.
// The file is named after the rectangle that was actually exported. The
// session is released only once the file is written, so a failed write can
// be retried.
func (p Publisher) Export(ctx context.Context, filename string, session *crop.Session) (string, int, error) {
	var (
		outPath string
		size    int
	)
	err := session.ExportWith(ctx, func(r crop.Rect, data []byte) error {
		name := OutputName(filename, r, session.Spec())
		log.Ctx(ctx).Info().Str("filename", filename).Str("output", name).Msg("exporting")

		if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", p.OutputDir, err)
		}
		path := filepath.Join(p.OutputDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write cropped file %s: %w", name, err)
		}
		outPath, size = path, len(data)
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return outPath, size, nil
}
