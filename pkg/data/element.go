package data

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/quiverml/quiver/pkg/plugin"
)

// InterfaceName is the registry name for the data element interface.
const InterfaceName = "data-element"

// Element is a handle to a blob of bytes from some source.
type Element interface {
	plugin.Pluggable

	// UUID is a stable identifier for the element. Source-addressed
	// elements derive it from their address; value elements derive it
	// from their content.
	UUID() string

	// ContentType reports the MIME type of the content.
	ContentType() string

	// Bytes fetches the element's content.
	Bytes(ctx context.Context) ([]byte, error)
}

func init() {
	plugin.MustRegisterInterface(plugin.Interface{
		Name:         InterfaceName,
		Type:         plugin.InterfaceFor[Element](),
		PathVar:      "QUIVER_DATA_ELEMENT_PATH",
		ExportSymbol: "DataElementProviders",
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "memory",
		New:  func() plugin.Pluggable { return &MemoryElement{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "file",
		New:  func() plugin.Pluggable { return &FileElement{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "url",
		New:  func() plugin.Pluggable { return &URLElement{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "s3",
		New:  func() plugin.Pluggable { return &S3Element{} },
	})
}

// checksumID returns the hex SHA-1 of the given bytes.
func checksumID(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
