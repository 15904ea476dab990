package command

import (
	"context"
	"fmt"
	"sort"
)

// Params is the open parameter bag attached to a task. "args" carries the
// free-text argument string.
type Params map[string]any

func (p Params) Args() string {
	if v, ok := p["args"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Handler is one command implementation; each command is its own type.
type Handler interface {
	Name() string
	Execute(ctx context.Context, p Params) (string, error)
}

// Registry maps command name to handler. It is assembled once at startup
// and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(hs ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(hs))}
	for _, h := range hs {
		name := h.Name()
		if name == "" {
			return nil, fmt.Errorf("handler %T has no name", h)
		}
		if _, dup := r.handlers[name]; dup {
			return nil, fmt.Errorf("duplicate command %q", name)
		}
		r.handlers[name] = h
	}
	return r, nil
}

func (r *Registry) Get(name string) (Handler, bool) { h, ok := r.handlers[name]; return h, ok }

// Names lists registered commands in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
