package export

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// PreviewPrefix is the URL path under which previews are served.
const PreviewPrefix = "/preview/"

// Preview is a published encoded preview.
type Preview struct {
	URL      string
	MIMEType string
	Data     []byte
}

// PreviewStore holds the encoded previews that are currently addressable.
// Publishing a new preview for a slot revokes the one it supersedes.
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]Preview // token -> preview
	current  string
	revoked  int
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]Preview)}
}

// Publish stores data under a fresh URL, makes it current and revokes the
// previous current URL.
func (s *PreviewStore) Publish(mimeType, ext string, data []byte) string {
	token := uuid.NewString() + ext

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Preview{URL: PreviewPrefix + token, MIMEType: mimeType, Data: data}
	s.previews[token] = p
	if s.current != "" {
		s.revokeLocked(s.current)
	}
	s.current = token
	return p.URL
}

// Revoke releases url. It reports false if url was unknown or already revoked.
func (s *PreviewStore) Revoke(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimPrefix(url, PreviewPrefix)
	if token == s.current {
		s.current = ""
	}
	return s.revokeLocked(token)
}

func (s *PreviewStore) revokeLocked(token string) bool {
	if _, ok := s.previews[token]; !ok {
		return false
	}
	delete(s.previews, token)
	s.revoked++
	return true
}

// Lookup finds a live preview by its token (the URL without PreviewPrefix).
func (s *PreviewStore) Lookup(token string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[token]
	return p, ok
}

// Current returns the URL of the latest preview, or "".
func (s *PreviewStore) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return ""
	}
	return PreviewPrefix + s.current
}

// Len is the number of live previews.
func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

// Revoked counts revocations over the store's lifetime.
func (s *PreviewStore) Revoked() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked
}
