package business

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// render writes v in the requested format. Raw JSON is decoded first so the
// YAML form mirrors it.
func render(out io.Writer, format string, v any) error {
	if raw, ok := v.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
		v = decoded
	}

	switch format {
	case OutputJSON, "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json output: %w", err)
		}
	case OutputYAML:
		data, err := yaml.MarshalWithOptions(v, yaml.UseJSONMarshaler())
		if err != nil {
			return fmt.Errorf("encoding yaml output: %w", err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	return nil
}
