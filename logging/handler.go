package logging

import (
	"context"
	"log/slog"
)

// componentKey is the attribute key that selects a per-component level
// override from the spec.
const componentKey = "component"

// componentHandler filters records against the spec's level for the
// component named in the logger's attributes.
type componentHandler struct {
	inner     slog.Handler
	spec      *Spec
	component string
}

func newComponentHandler(inner slog.Handler, spec *Spec) slog.Handler {
	return &componentHandler{
		inner: inner,
		spec:  spec,
	}
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.spec.LevelFor(h.component).slog()
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs tracks the most recent "component" attribute so nested
// loggers inherit and can replace the component.
func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &componentHandler{
		inner:     h.inner.WithAttrs(attrs),
		spec:      h.spec,
		component: h.component,
	}
	for _, attr := range attrs {
		if attr.Key == componentKey {
			next.component = attr.Value.String()
		}
	}
	return next
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{
		inner:     h.inner.WithGroup(name),
		spec:      h.spec,
		component: h.component,
	}
}
