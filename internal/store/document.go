package store

import (
	"encoding/json"
	"fmt"

	"github.com/reptin/rcs/internal/engine"
)

// ExportDocument renders the collection as the downloadable settings
// document: the same JSON array layout the backend persists.
func ExportDocument(engines []engine.Engine) ([]byte, error) {
	data, err := json.MarshalIndent(engines, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export collection: %w", err)
	}
	return data, nil
}

// ImportDocument parses and validates an uploaded settings document.
// Every item must carry at least an id, a title, a url and a boolean
// enabled flag; one invalid item rejects the whole document.
func ImportDocument(data []byte) ([]engine.Engine, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("document is not a valid engine list: %w", err)
	}

	for i, item := range raw {
		if err := validateImportItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	var engines []engine.Engine
	if err := json.Unmarshal(data, &engines); err != nil {
		return nil, fmt.Errorf("document is not a valid engine list: %w", err)
	}
	return engines, nil
}

func validateImportItem(item map[string]json.RawMessage) error {
	var id, title, urlStr string
	if err := requireString(item, "id", &id); err != nil {
		return err
	}
	if err := requireString(item, "title", &title); err != nil {
		return err
	}
	if err := requireString(item, "url", &urlStr); err != nil {
		return err
	}

	rawEnabled, ok := item["enabled"]
	if !ok {
		return fmt.Errorf("missing field %q", "enabled")
	}
	var enabled bool
	if err := json.Unmarshal(rawEnabled, &enabled); err != nil {
		return fmt.Errorf("field %q must be a boolean", "enabled")
	}
	return nil
}

func requireString(item map[string]json.RawMessage, field string, dst *string) error {
	raw, ok := item[field]
	if !ok {
		return fmt.Errorf("missing field %q", field)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q must be a string", field)
	}
	if *dst == "" {
		return fmt.Errorf("field %q must not be empty", field)
	}
	return nil
}
