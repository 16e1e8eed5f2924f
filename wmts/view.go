package wmts

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// View ties a service URL to its selection state, the way one comparison
// page holds one WMTS service.
type View struct {
	BaseURL   string
	Client    *Client
	Selection *Selection
	// Escape switches tile templates to EscapedTileURL.
	Escape bool

	mu     sync.RWMutex
	caps   *Capabilities
	flight singleflight.Group
}

func NewView(baseURL string, client *Client, initial string) *View {
	return &View{
		BaseURL:   baseURL,
		Client:    client,
		Selection: NewSelection(initial, UsableOnly),
	}
}

// Refresh fetches the capabilities again and applies the new layer list.
// On failure the previous list stays in place and the error is returned.
//
// Overlapping calls share one fetch. The fetch itself is bounded by the
// client timeout; a canceled ctx only stops the caller from waiting.
func (v *View) Refresh(ctx context.Context) error {
	ch := v.flight.DoChan("refresh", func() (any, error) {
		return nil, v.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &NetworkError{URL: v.BaseURL, Err: ctx.Err()}
	}
}

func (v *View) refresh(ctx context.Context) error {
	v.Selection.setLoading()
	caps, err := v.Client.Capabilities(ctx, v.BaseURL)
	if err != nil {
		v.Selection.Fail(err)
		v.Client.Logger.Warn("capabilities refresh failed", "url", v.BaseURL, "error", err)
		return err
	}

	v.mu.Lock()
	v.caps = caps
	v.mu.Unlock()
	current := v.Selection.Apply(caps.Layers)

	v.Client.Logger.Info("capabilities refreshed", "url", v.BaseURL, "layers", len(caps.Layers), "current", current)
	return nil
}

// Capabilities is the last successfully parsed document, nil before the
// first refresh.
func (v *View) Capabilities() *Capabilities {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.caps
}

// Layer returns the layer named id, or the current one when id is empty.
func (v *View) Layer(id string) (Layer, error) {
	if id == "" {
		id = v.Selection.Current()
	}
	l, ok := v.Selection.Layer(id)
	if !ok {
		return Layer{}, fmt.Errorf("%w: %q", ErrUnknownLayer, id)
	}
	return l, nil
}

// TileURL returns the tile template of layer id (current when empty).
func (v *View) TileURL(id string) (string, error) {
	l, err := v.Layer(id)
	if err != nil {
		return "", err
	}
	return v.TemplateFor(l), nil
}

// CurrentTileURL returns the tile template of the selected layer.
func (v *View) CurrentTileURL() (string, error) {
	return v.TileURL("")
}

func (v *View) TemplateFor(l Layer) string {
	if v.Escape {
		return EscapedTileURL(v.BaseURL, l)
	}
	return TileURL(v.BaseURL, l)
}
