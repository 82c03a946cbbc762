package serialize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/hugr-lab/airport-openapi/internal/msgpack"
)

// EmptySHA256 is the hash DuckDB expects for contents sent inline as nil.
const EmptySHA256 = "0000000000000000000000000000000000000000000000000000000000000000"

// Contents mirrors Airport's serialized-contents-with-hash record. URL and
// Serialized are always encoded, as nil when absent.
type Contents struct {
	SHA256     string  `msgpack:"sha256"`
	URL        *string `msgpack:"url"`
	Serialized *string `msgpack:"serialized"`
}

// SchemaEntry is one schema of the catalog root.
type SchemaEntry struct {
	Name        string            `msgpack:"name"`
	Description string            `msgpack:"description"`
	Tags        map[string]string `msgpack:"tags"`
	Contents    Contents          `msgpack:"contents"`
	IsDefault   bool              `msgpack:"is_default"`
}

type versionInfo struct {
	CatalogVersion uint64 `msgpack:"catalog_version"`
	IsFixed        bool   `msgpack:"is_fixed"`
}

type catalogRoot struct {
	Contents    Contents      `msgpack:"contents"`
	Schemas     []SchemaEntry `msgpack:"schemas"`
	VersionInfo versionInfo   `msgpack:"version_info"`
}

// InlineContents hashes serialized and returns it as inline contents.
func InlineContents(serialized []byte) Contents {
	hash := sha256.Sum256(serialized)
	s := string(serialized)
	return Contents{
		SHA256:     hex.EncodeToString(hash[:]),
		Serialized: &s,
	}
}

// CatalogRoot encodes the list_schemas response body. The first schema is
// marked as the default one.
func CatalogRoot(schemas []SchemaEntry) ([]byte, error) {
	for i := range schemas {
		schemas[i].IsDefault = i == 0
		if schemas[i].Tags == nil {
			schemas[i].Tags = map[string]string{}
		}
	}
	root := catalogRoot{
		Contents: Contents{SHA256: EmptySHA256},
		Schemas:  schemas,
		VersionInfo: versionInfo{
			CatalogVersion: 1,
			IsFixed:        true,
		},
	}

	data, err := msgpack.Encode(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog root: %w", err)
	}
	return WrapCompressed(data)
}
