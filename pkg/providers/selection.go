// Package providers exposes the fixed set of supported CI providers and the
// mutable selection cell tracking which one generation targets.
package providers

import (
	"sync"

	"github.com/pipewright/pipewright/pkg/engine"
)

// Info describes one supported CI provider for presentation.
type Info struct {
	// ID is the provider's stable identifier.
	ID engine.CIProvider `json:"id"`

	// DisplayName is the human-readable provider name.
	DisplayName string `json:"display_name"`

	// ConfigFileName is the conventional configuration file path.
	ConfigFileName string `json:"config_file_name"`
}

// List returns the supported providers in presentation order.
func List() []Info {
	infos := make([]Info, 0, len(engine.Providers()))
	for _, p := range engine.Providers() {
		infos = append(infos, Info{
			ID:             p,
			DisplayName:    p.DisplayName(),
			ConfigFileName: p.ConfigFileName(),
		})
	}
	return infos
}

// Selection holds the currently selected CI provider. The value is always a
// member of the fixed enumeration; it starts at the default and can never be
// unset.
type Selection struct {
	mu      sync.RWMutex
	current engine.CIProvider
}

// NewSelection creates a selection initialized to the default provider.
func NewSelection() *Selection {
	return &Selection{current: engine.DefaultProvider}
}

// Select changes the selected provider. Unsupported values are rejected and
// leave the selection unchanged.
func (s *Selection) Select(p engine.CIProvider) error {
	if err := p.Validate(); err != nil {
		return engine.NewValidationError(err.Error(), err).WithOperation("select_provider")
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return nil
}

// Current returns the selected provider.
func (s *Selection) Current() engine.CIProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
