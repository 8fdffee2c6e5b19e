package stt

import (
	"context"
	"fmt"
	"sync"
)

// Lazy defers building a provider until the first transcription. The
// constructor runs at most once; concurrent first callers wait for it and
// all observe the same provider or the same error.
type Lazy struct {
	name  string
	build func() (STTProvider, error)

	once     sync.Once
	provider STTProvider
	err      error
}

func NewLazy(name string, build func() (STTProvider, error)) *Lazy {
	return &Lazy{name: name, build: build}
}

func (l *Lazy) Name() string { return l.name }

// Get returns the provider, constructing it on first use.
func (l *Lazy) Get() (STTProvider, error) {
	l.once.Do(func() {
		// Survives a panicking constructor, which sync.Once still counts as done.
		l.err = fmt.Errorf("stt backend %s: constructor panicked", l.name)
		l.provider, l.err = l.build()
		if l.err == nil && l.provider == nil {
			l.err = fmt.Errorf("stt backend %s: constructor returned no provider", l.name)
		}
	})
	return l.provider, l.err
}

func (l *Lazy) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	p, err := l.Get()
	if err != nil {
		return nil, fmt.Errorf("load stt backend: %w", err)
	}
	return p.Transcribe(ctx, req)
}
