package processor

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// Prober rejects uploads that do not decode as an image and reports
// pixel dimensions for the metadata row.
type Prober struct{}

func New() *Prober {
	return &Prober{}
}

func (p *Prober) Probe(data []byte) (int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("Prober - Probe - imaging.Decode: %w", errs.ErrEncoding)
	}

	bounds := img.Bounds()

	return bounds.Dx(), bounds.Dy(), nil
}
