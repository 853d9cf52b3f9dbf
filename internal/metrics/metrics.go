package metrics

import (
	"sync"
	"time"
)

// Metrics tracks pipeline activity for the monitoring endpoints.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	GenerationsStarted   int64
	GenerationsCompleted int64
	GenerationsFailed    int64
	PostsPublished       int64
	SourcesExtracted     int64
	ExtractionFailures   int64
	AICalls              int64
	AIFallbacks          int64

	// Timings
	LastProcessingTime  time.Duration
	TotalProcessingTime time.Duration
	ProcessingCount     int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncGenerationsStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsStarted++
	m.LastRunTime = time.Now()
}

func (m *Metrics) IncGenerationsCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsCompleted++
	m.IsHealthy = true
}

func (m *Metrics) IncGenerationsFailed(errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsFailed++
	m.LastError = errMsg
	m.LastErrorTime = time.Now()
}

func (m *Metrics) IncPostsPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostsPublished++
}

func (m *Metrics) AddSourcesExtracted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesExtracted += int64(n)
}

func (m *Metrics) IncExtractionFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractionFailures++
}

func (m *Metrics) IncAICalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AICalls++
}

func (m *Metrics) IncAIFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AIFallbacks++
}

func (m *Metrics) RecordProcessingTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastProcessingTime = d
	m.TotalProcessingTime += d
	m.ProcessingCount++
}

// GetStats returns a snapshot for the /metrics endpoint.
func (m *Metrics) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avg := time.Duration(0)
	if m.ProcessingCount > 0 {
		avg = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}

	return map[string]any{
		"generations_started":     m.GenerationsStarted,
		"generations_completed":   m.GenerationsCompleted,
		"generations_failed":      m.GenerationsFailed,
		"posts_published":         m.PostsPublished,
		"sources_extracted":       m.SourcesExtracted,
		"extraction_failures":     m.ExtractionFailures,
		"ai_calls":                m.AICalls,
		"ai_fallbacks":            m.AIFallbacks,
		"last_processing_time":    m.LastProcessingTime.String(),
		"average_processing_time": avg.String(),
		"last_run_time":           m.LastRunTime,
		"last_error":              m.LastError,
		"last_error_time":         m.LastErrorTime,
		"is_healthy":              m.IsHealthy,
	}
}
