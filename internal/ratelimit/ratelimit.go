package ratelimit

import (
	"fmt"
	"sync"
)

// AIBudget caps how many AI completions a single generation run may
// issue, with optional per-provider ceilings. A run that exhausts the
// budget fails its current call instead of looping forever on retries.
type AIBudget struct {
	mu         sync.Mutex
	counts     map[string]int
	maxPerProv map[string]int
	totalCount int
	maxTotal   int
}

// NewAIBudget creates a budget with a total cap. Zero means unlimited.
func NewAIBudget(maxTotal int) *AIBudget {
	return &AIBudget{
		counts:     make(map[string]int),
		maxPerProv: make(map[string]int),
		maxTotal:   maxTotal,
	}
}

// SetProviderLimit sets a per-provider ceiling. Zero means unlimited.
func (b *AIBudget) SetProviderLimit(provider string, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxPerProv[provider] = max
}

// Allow records one call for provider, or reports why it cannot run.
func (b *AIBudget) Allow(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("AI call budget exhausted (%d/%d)", b.totalCount, b.maxTotal)
	}
	if max, ok := b.maxPerProv[provider]; ok && max > 0 && b.counts[provider] >= max {
		return fmt.Errorf("AI call budget for %s exhausted (%d/%d)", provider, b.counts[provider], max)
	}

	b.counts[provider]++
	b.totalCount++
	return nil
}

// Used returns how many calls have been recorded in total.
func (b *AIBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalCount
}

// Stats returns per-provider usage for logging.
func (b *AIBudget) Stats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.counts)+1)
	for p, n := range b.counts {
		out[p] = n
	}
	out["total"] = b.totalCount
	return out
}
