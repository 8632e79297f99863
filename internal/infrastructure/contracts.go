package infrastructure

import (
	"context"

	"github.com/okushnikov/structured-query/internal/entity"
)

// ImageInput is the optional image attached to a model invocation.
type ImageInput struct {
	Data        []byte
	ContentType string
}

type (
	// ModelInvoker calls the external structured-output model. Invocations
	// are latent and billable; implementations must not be called while
	// holding locks on shared state.
	ModelInvoker interface {
		Invoke(ctx context.Context, prompt string, schemaDescriptor []byte, image *ImageInput) ([]byte, error)
		Model() string
	}

	// ImageProber checks that uploaded bytes decode as an image and
	// reports pixel dimensions.
	ImageProber interface {
		Probe(data []byte) (width, height int, err error)
	}

	EventsSender interface {
		SendEvents(ctx context.Context, events []*entity.CostEvent) error
		Close() error
	}
)
