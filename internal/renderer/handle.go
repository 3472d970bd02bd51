package renderer

import (
	"context"
	"sync"

	"gridexport/internal/exporter"
)

// bufferedHandle holds an artifact that was fully rendered during Mount
type bufferedHandle struct {
	artifact *exporter.Artifact
	ready    chan struct{}
	release  func() error
	once     sync.Once
}

func newBufferedHandle(artifact *exporter.Artifact, release func() error) *bufferedHandle {
	ready := make(chan struct{})
	close(ready)
	return &bufferedHandle{artifact: artifact, ready: ready, release: release}
}

func (h *bufferedHandle) Ready() <-chan struct{} { return h.ready }

func (h *bufferedHandle) Save(ctx context.Context) (*exporter.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.artifact, nil
}

func (h *bufferedHandle) Close() error {
	var err error
	h.once.Do(func() {
		if h.release != nil {
			err = h.release()
		}
	})
	return err
}
