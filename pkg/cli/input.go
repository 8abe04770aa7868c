package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// readInput reads a request file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeRequest decodes YAML or JSON into v. The document is normalized to
// JSON first so v's JSON tags and codecs apply to both formats.
func decodeRequest(data []byte, v interface{}) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("parse input: document is empty")
	}
	normalized, err := json.Marshal(toJSONCompatible(doc))
	if err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

// toJSONCompatible converts YAML maps with non-string keys into string-keyed
// maps and timestamps back into their text so encoding/json accepts them.
func toJSONCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			t[k] = toJSONCompatible(child)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = toJSONCompatible(child)
		}
		return out
	case []interface{}:
		for i, child := range t {
			t[i] = toJSONCompatible(child)
		}
		return t
	case time.Time:
		if t.Equal(t.Truncate(24 * time.Hour)) {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}
