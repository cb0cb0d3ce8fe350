package toolserver

import (
	"context"
	"fmt"
	"strings"
)

// ResourceHandler resolves a resource URI (static or matched against a
// template) to its bytes.
type ResourceHandler func(ctx context.Context, uri string) ([]byte, string, error)

// Resources is the optional static-URI + templated-URI resource registry
// backing codebase://manifest, codebase://graph, codebase://unit/{id}, and
// codebase://type/{type}.
type Resources struct {
	static    map[string]ResourceHandler
	templates []resourceTemplate
}

type resourceTemplate struct {
	prefix  string
	handler func(ctx context.Context, param string) ([]byte, string, error)
}

// NewResources constructs an empty Resources registry.
func NewResources() *Resources {
	return &Resources{static: make(map[string]ResourceHandler)}
}

// RegisterStatic adds a fixed-URI resource, e.g. "codebase://manifest".
func (r *Resources) RegisterStatic(uri string, h ResourceHandler) {
	r.static[uri] = h
}

// RegisterTemplate adds a "prefix{param}" template resource, e.g.
// "codebase://unit/{identifier}" (prefix "codebase://unit/").
func (r *Resources) RegisterTemplate(prefix string, h func(ctx context.Context, param string) ([]byte, string, error)) {
	r.templates = append(r.templates, resourceTemplate{prefix: prefix, handler: h})
}

// Read resolves uri against the static map first, then the registered
// templates in registration order.
func (r *Resources) Read(ctx context.Context, uri string) ([]byte, string, error) {
	if h, ok := r.static[uri]; ok {
		return h(ctx, uri)
	}
	for _, t := range r.templates {
		if strings.HasPrefix(uri, t.prefix) {
			return t.handler(ctx, strings.TrimPrefix(uri, t.prefix))
		}
	}
	return nil, "", fmt.Errorf("toolserver: no resource matches %q", uri)
}
