package generator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/quiverml/quiver/pkg/data"
	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// InterfaceName is the registry name for the descriptor generator interface.
const InterfaceName = "descriptor-generator"

// Generator computes a descriptor vector from a data element's content.
type Generator interface {
	plugin.Pluggable

	// ContentTypes lists the MIME types the generator accepts. A "*/*"
	// entry accepts anything.
	ContentTypes() []string

	// Generate computes the descriptor for one element, allocating the
	// result through the factory under the source element's UUID.
	Generate(ctx context.Context, source data.Element, factory *descriptor.Factory) (descriptor.Element, error)
}

func init() {
	plugin.MustRegisterInterface(plugin.Interface{
		Name:         InterfaceName,
		Type:         plugin.InterfaceFor[Generator](),
		PathVar:      "QUIVER_DESCRIPTOR_GENERATOR_PATH",
		ExportSymbol: "DescriptorGeneratorProviders",
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "byte-histogram",
		New:  func() plugin.Pluggable { return &ByteHistogram{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "color-moments",
		New:  func() plugin.Pluggable { return &ColorMoments{} },
	})
}

// Accepts reports whether the generator handles the given content type.
// Parameters after a semicolon are ignored.
func Accepts(g Generator, contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	for _, ct := range g.ContentTypes() {
		if ct == "*/*" || ct == contentType {
			return true
		}
	}
	return false
}

// checkContentType fails with a uniform error for unacceptable sources.
func checkContentType(g Generator, source data.Element) error {
	if !Accepts(g, source.ContentType()) {
		return fmt.Errorf("content type %q not supported, want one of %v",
			source.ContentType(), g.ContentTypes())
	}
	return nil
}

// GenerateIfMissing returns the factory-backed descriptor for the source
// unchanged when it already carries a vector, computing one otherwise.
// Persistent factories (file-backed elements) skip recomputation across
// runs this way.
func GenerateIfMissing(ctx context.Context, g Generator, factory *descriptor.Factory, source data.Element) (descriptor.Element, error) {
	elem, err := factory.New(source.UUID())
	if err != nil {
		return nil, err
	}
	if _, ok := elem.Vector(); ok {
		return elem, nil
	}
	return g.Generate(ctx, source, factory)
}

// GenerateMany computes descriptors for several elements concurrently,
// preserving input order. A non-positive concurrency runs unbounded.
func GenerateMany(ctx context.Context, g Generator, factory *descriptor.Factory, sources []data.Element, concurrency int) ([]descriptor.Element, error) {
	out := make([]descriptor.Element, len(sources))

	grp, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		grp.SetLimit(concurrency)
	}
	for i, source := range sources {
		i, source := i, source
		grp.Go(func() error {
			elem, err := g.Generate(ctx, source, factory)
			if err != nil {
				return fmt.Errorf("generating descriptor for %q: %w", source.UUID(), err)
			}
			out[i] = elem
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
