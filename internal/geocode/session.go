package geocode

import "sync"

// SessionStats are counters accumulated over one enhancement run. They are
// observational only and never alter geocoding decisions.
type SessionStats struct {
	TotalRequests    int `json:"total_requests"`
	APISuccess       int `json:"api_success"`
	ValidationFailed int `json:"validation_failed"`
	EstimatedSuccess int `json:"estimated_success"`
	NotFound         int `json:"not_found"`
}

// SuccessRate returns the fraction of requests that yielded coordinates,
// whether from the API or by estimation.
func (s SessionStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.APISuccess+s.EstimatedSuccess) / float64(s.TotalRequests)
}

// Session collects geocoding statistics for a single run. Safe for
// concurrent use so records can be enhanced in parallel.
type Session struct {
	mu    sync.Mutex
	stats SessionStats
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) addRequest() {
	s.mu.Lock()
	s.stats.TotalRequests++
	s.mu.Unlock()
}

func (s *Session) addAPISuccess() {
	s.mu.Lock()
	s.stats.APISuccess++
	s.mu.Unlock()
}

func (s *Session) addValidationFailed() {
	s.mu.Lock()
	s.stats.ValidationFailed++
	s.mu.Unlock()
}

func (s *Session) addEstimated() {
	s.mu.Lock()
	s.stats.EstimatedSuccess++
	s.mu.Unlock()
}

func (s *Session) addNotFound() {
	s.mu.Lock()
	s.stats.NotFound++
	s.mu.Unlock()
}
