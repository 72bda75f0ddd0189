package session

import (
	"sync"

	"github.com/rs/zerolog"

	"phonestorage/internal/domain/upload"
	"phonestorage/internal/pkg/clock"
	"phonestorage/internal/pkg/token"
)

// Lister reads the files currently stored for a token. *upload.Store
// satisfies it.
type Lister interface {
	List(token string) ([]upload.FileDescriptor, error)
}

// Registry tracks sessions in insertion order. The primary session is the
// one minted at startup and shown on the desktop page.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	primary  string

	files Lister
	clock clock.Clock
	log   zerolog.Logger
}

func New(files Lister, clk clock.Clock, log zerolog.Logger) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		files:    files,
		clock:    clk,
		log:      log.With().Str("component", "session_registry").Logger(),
	}
}

// Create mints a fresh session token and makes it the primary session.
func (r *Registry) Create() Session {
	tok := token.NewSessionToken()

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.ensureLocked(tok)
	r.primary = tok
	r.log.Info().Msg("session created")
	return copySession(s)
}

func (r *Registry) Primary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary
}

func (r *Registry) Exists(tok string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[tok]
	return ok
}

func (r *Registry) Get(tok string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tok]
	if !ok {
		return Session{}, false
	}
	return copySession(s), true
}

// Grant marks the session as having granted permission, creating it first
// if needed.
func (r *Registry) Grant(tok string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(tok).Granted = true
}

// RecordUpload appends a file to the session, creating it first if needed.
func (r *Registry) RecordUpload(tok, filename string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.ensureLocked(tok)
	s.Files = append(s.Files, FileRecord{Name: filename, Size: size})
}

// ListAll returns every session in creation order with its current files on
// disk.
func (r *Registry) ListAll() []View {
	r.mu.Lock()
	snapshot := make([]Session, 0, len(r.order))
	for _, tok := range r.order {
		snapshot = append(snapshot, copySession(r.sessions[tok]))
	}
	r.mu.Unlock()

	views := make([]View, 0, len(snapshot))
	for _, s := range snapshot {
		files := r.diskFiles(s.Token)
		views = append(views, View{
			Token:     s.Token,
			Granted:   s.Granted,
			CreatedAt: s.CreatedAt,
			Files:     files,
			FileCount: len(files),
		})
	}
	return views
}

func (r *Registry) diskFiles(tok string) []FileRecord {
	out := make([]FileRecord, 0)
	if r.files == nil {
		return out
	}
	listed, err := r.files.List(tok)
	if err != nil {
		return out
	}
	for _, f := range listed {
		out = append(out, FileRecord{Name: f.Name, Size: f.Size})
	}
	return out
}

func (r *Registry) ensureLocked(tok string) *Session {
	if s, ok := r.sessions[tok]; ok {
		return s
	}
	s := &Session{Token: tok, CreatedAt: r.clock.Now(), Files: []FileRecord{}}
	r.sessions[tok] = s
	r.order = append(r.order, tok)
	return s
}

func copySession(s *Session) Session {
	c := *s
	c.Files = append([]FileRecord{}, s.Files...)
	return c
}
