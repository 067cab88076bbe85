// -----------------------------------------------------------------------
// Rate-Limit State - Request-scoped structured-API short-circuit
// -----------------------------------------------------------------------

package verifier

import "sync"

// rateLimitState records whether the structured API returned a 429 during
// the current request. Once tripped, every later structured-API call in
// the same request is skipped; HTML fallbacks are unaffected. The state is
// request-scoped, never a package global.
type rateLimitState struct {
	mu      sync.Mutex
	tripped bool
}

func (s *rateLimitState) Trip() {
	s.mu.Lock()
	s.tripped = true
	s.mu.Unlock()
}

func (s *rateLimitState) Tripped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped
}
