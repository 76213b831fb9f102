// Package gatewayflags is a runtime-toggleable operational flag store,
// adapted from the teacher's internal/features package. The teacher's
// speculative-decoding/semantic-cache/prefix-cache flags don't survive
// here (the chat path has no Ollama backend to tune); the flag-store
// mechanism is kept. Flags are toggled and listed through the gateway's
// /api/flags route. No other package reads the stored values, so toggling
// a flag changes what /api/flags reports and nothing else.
package gatewayflags

import "sync"

// FlagID is a unique key for an operational flag.
type FlagID string

const (
	// ForceCPU is the runtime counterpart of the --force-cpu CLI flag.
	// It is only stored and reported; device selection reads
	// chatmodel.Options.ForceCPU, set from the CLI flag, not this one.
	ForceCPU FlagID = "force_cpu"
	// VerboseMetrics is stored and reported only; metrics snapshots
	// have the same fields whether it is on or off.
	VerboseMetrics FlagID = "verbose_metrics"
)

// Info describes one flag for display or API listing.
type Info struct {
	ID          FlagID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Store holds the current enabled/disabled state of all flags.
type Store struct {
	mu    sync.RWMutex
	flags map[FlagID]bool
}

// NewStore creates a Store with every flag disabled.
func NewStore() *Store {
	return &Store{
		flags: map[FlagID]bool{
			ForceCPU:       false,
			VerboseMetrics: false,
		},
	}
}

// IsEnabled reports whether id is currently on. Unknown ids report false.
func (s *Store) IsEnabled(id FlagID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[id]
}

// Set enables or disables id. Returns false if id is unknown.
func (s *Store) Set(id FlagID, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[id]; !ok {
		return false
	}
	s.flags[id] = enabled
	return true
}

// All returns every flag's Info in display order.
func (s *Store) All() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return []Info{
		{ID: ForceCPU, Name: "Force CPU", Description: "Recorded and listed only; device selection follows the --force-cpu CLI flag.", Enabled: s.flags[ForceCPU]},
		{ID: VerboseMetrics, Name: "Verbose Metrics", Description: "Recorded and listed only; metrics snapshots do not change with it.", Enabled: s.flags[VerboseMetrics]},
	}
}
