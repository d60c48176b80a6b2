package emit

import (
	"encoding/json"
	"fmt"

	"github.com/broady/rpcontract/model"
)

// DiscoveryVersion is the format version of the discovery document.
const DiscoveryVersion = 1

// Document is the discovery document written next to the generated code.
type Document struct {
	Version int           `json:"version"`
	Key     string        `json:"key,omitempty"`
	Schema  *model.Schema `json:"schema"`
}

// Discovery returns the indented discovery document for schema.
func Discovery(schema *model.Schema, key string) ([]byte, error) {
	data, err := json.MarshalIndent(Document{Version: DiscoveryVersion, Key: key, Schema: schema}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal discovery document: %w", err)
	}
	return append(data, '\n'), nil
}
