package qa

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Loader builds a model. It is called at most once per Lazy.
type Loader func(ctx context.Context) (Model, error)

// Lazy defers loading a model until the first question and then shares it.
// A failed load is remembered and returned to every later caller.
type Lazy struct {
	name string
	load Loader

	once   sync.Once
	model  Model
	err    error
	loaded atomic.Bool
}

// NewLazy wraps load. name is reported before the model is loaded.
func NewLazy(name string, load Loader) *Lazy {
	return &Lazy{name: name, load: load}
}

// Name implements Model.
func (l *Lazy) Name() string { return l.name }

// Get loads the model on first use.
func (l *Lazy) Get(ctx context.Context) (Model, error) {
	l.once.Do(func() {
		start := time.Now()
		l.model, l.err = l.load(ctx)
		if l.err != nil {
			slog.Error("Failed to load QA model.", "model", l.name, "error", l.err)
			return
		}
		l.loaded.Store(true)
		slog.Info("Loaded QA model.", "model", l.name, "elapsed", time.Since(start).String())
	})
	return l.model, l.err
}

// Answer implements Model.
func (l *Lazy) Answer(ctx context.Context, passage, question string) (*Answer, error) {
	m, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return m.Answer(ctx, passage, question)
}

// Close releases the model if it was loaded and holds resources. It never
// triggers a load.
func (l *Lazy) Close() error {
	if !l.loaded.Load() {
		return nil
	}
	if c, ok := l.model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
