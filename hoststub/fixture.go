// Package hoststub serves a recorded diagnostics mapping at
// /fl_system_info so the node can be exercised without the real host.
// It replays a YAML fixture; it does not collect anything itself.
package hoststub

import (
	"errors"
	"fmt"
	"os"

	"sysdiag/diag"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadFixture reads a fixture file. See ParseFixture.
func LoadFixture(path string) (diag.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	snap, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return snap, nil
}

// ParseFixture decodes a top-level YAML mapping of scalar values, keeping
// document order. A repeated key keeps its first position and takes the
// last value, the same rule the client applies to JSON bodies.
func ParseFixture(data []byte) (diag.Snapshot, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return diag.Snapshot{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("fixture must be a mapping")
	}

	snap := make(diag.Snapshot, 0, len(root.Content)/2)
	index := make(map[string]int, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind == yaml.AliasNode {
			value = value.Alias
		}
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: value for %q must be a scalar", value.Line, key.Value)
		}
		text := value.Value
		if value.Tag == "!!null" {
			text = "null"
		}
		if pos, ok := index[key.Value]; ok {
			snap[pos].Value = text
			continue
		}
		index[key.Value] = len(snap)
		snap = append(snap, diag.Entry{Key: key.Value, Value: text})
	}
	return snap, nil
}

// EncodeJSON writes snap as a flat JSON object of strings in entry order.
func EncodeJSON(snap diag.Snapshot) ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, e := range snap {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(e.Key)
		stream.WriteString(e.Value)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}
