package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/provision"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatLayout formats a StorageLayout as indented JSON.
func (f *JSONFormatter) FormatLayout(sl *v1alpha1.StorageLayout) (string, error) {
	v1alpha1.SetDefaultAPIVersion(sl)

	data, err := json.MarshalIndent(sl, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal layout to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatItems formats provisioning records as a JSON array.
func (f *JSONFormatter) FormatItems(items []provision.Item) (string, error) {
	if len(items) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal items to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
