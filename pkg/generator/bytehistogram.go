package generator

import (
	"context"
	"fmt"

	"github.com/quiverml/quiver/pkg/data"
	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// ByteHistogram computes a histogram over raw byte values. Works on any
// content type, which makes it the cheap default generator.
type ByteHistogram struct {
	bins      int
	normalize bool
}

func (g *ByteHistogram) DefaultConfig() plugin.Config {
	return plugin.Config{
		"bins":      256,
		"normalize": true,
	}
}

func (g *ByteHistogram) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	g.bins = cfg.IntOr("bins", 256)
	if g.bins < 1 || g.bins > 256 {
		return fmt.Errorf("bins must be between 1 and 256, got %d", g.bins)
	}
	g.normalize = cfg.BoolOr("normalize", true)
	return nil
}

func (g *ByteHistogram) Config() plugin.Config {
	return plugin.Config{
		"bins":      g.bins,
		"normalize": g.normalize,
	}
}

func (g *ByteHistogram) ContentTypes() []string {
	return []string{"*/*"}
}

func (g *ByteHistogram) Generate(ctx context.Context, source data.Element, factory *descriptor.Factory) (descriptor.Element, error) {
	b, err := source.Bytes(ctx)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("element %q has no content", source.UUID())
	}

	hist := make([]float64, g.bins)
	for _, by := range b {
		hist[int(by)*g.bins/256]++
	}
	if g.normalize {
		total := float64(len(b))
		for i := range hist {
			hist[i] /= total
		}
	}

	elem, err := factory.New(source.UUID())
	if err != nil {
		return nil, err
	}
	if err := elem.SetVector(hist); err != nil {
		return nil, err
	}
	return elem, nil
}
