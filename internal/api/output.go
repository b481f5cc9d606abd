package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// OutputFormat is how CLI commands print API responses.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// outputFormat is set from the root command's --output flag.
var outputFormat atomic.Value

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatYAML, OutputFormatJSON:
		return f, nil
	case "":
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml or json)", s)
	}
}

// SetOutputFormat sets the format used by Output.
func SetOutputFormat(format string) error {
	f, err := ParseOutputFormat(format)
	if err != nil {
		return err
	}
	outputFormat.Store(f)
	return nil
}

// GetOutputFormat returns the format used by Output. YAML unless set.
func GetOutputFormat() OutputFormat {
	if f, ok := outputFormat.Load().(OutputFormat); ok {
		return f
	}
	return OutputFormatYAML
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, GetOutputFormat(), data)
}

// OutputTo writes data to w in format.
//
// Response types only carry json tags, so YAML is rendered from the JSON
// encoding: keys match the wire names (owner_id, compiled_prompt) and
// omitempty fields stay omitted.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
