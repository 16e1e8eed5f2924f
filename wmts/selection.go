package wmts

import (
	"fmt"
	"slices"
	"sync"
)

// Filter narrows a freshly parsed layer list before it is stored.
type Filter func([]Layer) []Layer

// UsableOnly drops layers without an identifier.
func UsableOnly(layers []Layer) []Layer {
	out := make([]Layer, 0, len(layers))
	for _, l := range layers {
		if l.Usable() {
			out = append(out, l)
		}
	}
	return out
}

// Selection holds the layer list of one view and the chosen identifier.
// It is safe for concurrent use.
type Selection struct {
	mu      sync.RWMutex
	layers  []Layer
	current string
	loading bool
	err     error
	filter  Filter
}

type State struct {
	Layers  []Layer `json:"layers"`
	Current string  `json:"current"`
	Loading bool    `json:"loading"`
	Error   string  `json:"error,omitempty"`
}

func NewSelection(initial string, filter Filter) *Selection {
	return &Selection{
		layers:  []Layer{},
		current: initial,
		filter:  filter,
	}
}

// Apply stores a new list. When the list is not empty and does not hold the
// current identifier, the first layer becomes current. It returns the
// identifier selected afterwards.
func (s *Selection) Apply(layers []Layer) string {
	if s.filter != nil {
		layers = s.filter(layers)
	}
	layers = slices.Clone(layers)
	if layers == nil {
		layers = []Layer{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = layers
	if len(layers) > 0 {
		if _, ok := FindLayer(layers, s.current); !ok {
			s.current = layers[0].Identifier
		}
	}
	s.loading = false
	s.err = nil
	return s.current
}

// Fail records a failed refresh. The list and the selection are kept.
func (s *Selection) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = err
}

func (s *Selection) setLoading() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

// Select makes id current. With a non-empty list, id has to be part of it.
func (s *Selection) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) > 0 {
		if _, ok := FindLayer(s.layers, id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLayer, id)
		}
	}
	s.current = id
	return nil
}

func (s *Selection) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CurrentLayer is the layer record of the current identifier, if listed.
func (s *Selection) CurrentLayer() (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FindLayer(s.layers, s.current)
}

// Layer looks up id in the current list.
func (s *Selection) Layer(id string) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FindLayer(s.layers, id)
}

func (s *Selection) Layers() []Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.layers)
}

func (s *Selection) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Selection) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Layers:  slices.Clone(s.layers),
		Current: s.current,
		Loading: s.loading,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}
