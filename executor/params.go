// params.go - ParamDict: Parameter-Mapping eines Executor-Factory
//
// Dieses Modul enthaelt:
// - ParamDict: Name -> Tensor-Wert, Einfuegereihenfolge bleibt erhalten
// - Get/Set/Len/Names/All/ToMap: Zugriffsfunktionen
// - UnmarshalYAML/UnmarshalJSON: Laden aus Parameter-Dateien
// - Flatten: Abwechselnde (Name, NDArray)-Liste fuer die Runtime-Grenze
package executor

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/relayexec/relayexec/ndarray"
)

// ParamDict haelt Parameter in Einfuegereihenfolge. Werte sind beliebige
// Tensor-Werte, die ndarray.Array versteht.
type ParamDict struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewParamDict erzeugt ein leeres ParamDict
func NewParamDict() *ParamDict {
	return &ParamDict{om: orderedmap.New[string, any]()}
}

// Get sucht einen Parameter nach Namen
func (p *ParamDict) Get(name string) (any, bool) {
	if p == nil || p.om == nil {
		return nil, false
	}
	return p.om.Get(name)
}

// Set setzt einen Parameter. Ein vorhandener Name behaelt seine Position.
func (p *ParamDict) Set(name string, value any) {
	if p.om == nil {
		p.om = orderedmap.New[string, any]()
	}
	p.om.Set(name, value)
}

// Len gibt die Anzahl der Parameter zurueck
func (p *ParamDict) Len() int {
	if p == nil || p.om == nil {
		return 0
	}
	return p.om.Len()
}

// Names gibt die Parameternamen in Einfuegereihenfolge zurueck
func (p *ParamDict) Names() []string {
	names := make([]string, 0, p.Len())
	for name := range p.All() {
		names = append(names, name)
	}
	return names
}

// All iteriert in Einfuegereihenfolge
func (p *ParamDict) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if p == nil || p.om == nil {
			return
		}

		for pair := p.om.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// ToMap gibt eine normale Map zurueck (Reihenfolge geht verloren)
func (p *ParamDict) ToMap() map[string]any {
	m := make(map[string]any, p.Len())
	for k, v := range p.All() {
		m[k] = v
	}
	return m
}

// UnmarshalYAML liest ein YAML-Mapping in Dateireihenfolge
func (p *ParamDict) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("params: expected mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}

	p.om = orderedmap.New[string, any]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}

		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("params: %s: %w", name, err)
		}

		if _, exists := p.om.Get(name); exists {
			return fmt.Errorf("params: duplicate parameter %q at line %d", name, node.Content[i].Line)
		}

		p.om.Set(name, value)
	}

	return nil
}

// UnmarshalJSON nutzt den YAML-Decoder, JSON-Objekte sind gueltiges YAML
func (p *ParamDict) UnmarshalJSON(data []byte) error {
	return yaml.Unmarshal(data, p)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// Flatten wandelt params in name0, arr0, name1, arr1, ... um.
// Jeder Wert wird mit ndarray.Array konvertiert, dessen Fehler
// unveraendert zurueckkommen.
func Flatten(params *ParamDict) ([]any, error) {
	args := make([]any, 0, 2*params.Len())
	for name, value := range params.All() {
		arr, err := ndarray.Array(value)
		if err != nil {
			return nil, err
		}

		args = append(args, name, arr)
	}

	return args, nil
}
