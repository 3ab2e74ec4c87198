// Package output provides formatters for displaying bedrock resources
// in various formats (table, YAML, JSON).
package output

import (
	"fmt"
	"strings"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/provision"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatTable Format = "table" // aligned columns for terminals
	FormatYAML  Format = "yaml"  // full resource, reloadable as a layout file
	FormatJSON  Format = "json"  // full resource for scripts
)

// formats lists the supported formats in help order.
var formats = []Format{FormatTable, FormatYAML, FormatJSON}

// Formatter renders bedrock resources.
type Formatter interface {
	// FormatLayout renders a StorageLayout and its partitions.
	FormatLayout(sl *v1alpha1.StorageLayout) (string, error)

	// FormatItems renders the records held by a provisioning store.
	FormatItems(items []provision.Item) (string, error)
}

// Options selects and tunes a Formatter.
type Options struct {
	Format    Format
	NoHeaders bool // table only
}

// NewFormatter returns the Formatter for opts.Format.
func NewFormatter(opts Options) (Formatter, error) {
	if err := ValidateFormat(string(opts.Format)); err != nil {
		return nil, err
	}

	switch opts.Format {
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	}
}

// ValidateFormat returns an error naming the supported formats when format
// is not one of them.
func ValidateFormat(format string) error {
	for _, f := range formats {
		if Format(format) == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q (supported: %s)", format, supported())
}

func supported() string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
