package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/provision"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatLayout formats a StorageLayout as a YAML document.
func (f *YAMLFormatter) FormatLayout(sl *v1alpha1.StorageLayout) (string, error) {
	v1alpha1.SetDefaultAPIVersion(sl)

	data, err := yaml.Marshal(sl)
	if err != nil {
		return "", fmt.Errorf("failed to marshal layout to YAML: %w", err)
	}

	return string(data), nil
}

// FormatItems formats provisioning records as a YAML sequence.
func (f *YAMLFormatter) FormatItems(items []provision.Item) (string, error) {
	if len(items) == 0 {
		return "[]\n", nil
	}

	data, err := yaml.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal items to YAML: %w", err)
	}

	return string(data), nil
}
