package domain

import (
	"slices"
	"sync"

	m "github.com/mouse-blink/phpguard/internal/model"
)

// Sink receives findings. One call carries the findings of one file in
// emission order, so implementations shared between concurrent checks keep
// every file's findings together.
type Sink interface {
	Emit(findings ...m.Finding)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(findings ...m.Finding)

// Emit calls f.
func (f SinkFunc) Emit(findings ...m.Finding) { f(findings...) }

// MemorySink is an append-only Sink safe for concurrent use.
type MemorySink struct {
	mu       sync.Mutex
	findings []m.Finding
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit appends findings as one contiguous group.
func (s *MemorySink) Emit(findings ...m.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findings = append(s.findings, findings...)
}

// Findings returns a copy of everything emitted so far.
func (s *MemorySink) Findings() []m.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.findings)
}

// ForFile returns the findings of one file in emission order.
func (s *MemorySink) ForFile(path m.Path) []m.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []m.Finding

	for _, f := range s.findings {
		if f.File == path {
			out = append(out, f)
		}
	}

	return out
}
