package generator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/quiverml/quiver/pkg/data"
	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// ColorMoments computes the first three statistical moments (mean, standard
// deviation, skewness) of each RGB channel, yielding a 9-dimensional vector.
type ColorMoments struct{}

func (g *ColorMoments) DefaultConfig() plugin.Config {
	return plugin.Config{}
}

func (g *ColorMoments) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	return nil
}

func (g *ColorMoments) Config() plugin.Config {
	return plugin.Config{}
}

func (g *ColorMoments) ContentTypes() []string {
	return []string{"image/jpeg", "image/png", "image/gif"}
}

func (g *ColorMoments) Generate(ctx context.Context, source data.Element, factory *descriptor.Factory) (descriptor.Element, error) {
	if err := checkContentType(g, source); err != nil {
		return nil, err
	}
	b, err := source.Bytes(ctx)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decoding image %q: %w", source.UUID(), err)
	}

	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return nil, fmt.Errorf("image %q is empty", source.UUID())
	}

	// Channel values normalized to [0, 1].
	var sum, sumSq, sumCube [3]float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			for c, raw := range [3]uint32{r, gr, bl} {
				v := float64(raw) / 0xffff
				sum[c] += v
				sumSq[c] += v * v
				sumCube[c] += v * v * v
			}
		}
	}

	vec := make([]float64, 0, 9)
	for c := 0; c < 3; c++ {
		mean := sum[c] / n
		variance := sumSq[c]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		std := math.Sqrt(variance)

		// Third central moment via the raw moments.
		third := sumCube[c]/n - 3*mean*sumSq[c]/n + 2*mean*mean*mean
		skew := math.Cbrt(third)

		vec = append(vec, mean, std, skew)
	}

	elem, err := factory.New(source.UUID())
	if err != nil {
		return nil, err
	}
	if err := elem.SetVector(vec); err != nil {
		return nil, err
	}
	return elem, nil
}
