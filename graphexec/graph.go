// graph.go - JSON-Beschreibung des Ausfuehrungsgraphen
//
// Dieses Modul enthaelt:
// - Graph/Node: Struktur des Graph-JSON (nodes, arg_nodes, heads, attrs)
// - ParseGraph: Dekodiert und prueft die Indizes
// - FuncNames/InputNames: Abfragen fuer Bibliotheks-Funktionen und Eingaben
package graphexec

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrBadGraph = errors.New("graphexec: invalid graph")

// Node ist ein Knoten des Graphen. Eingaben sind (Knoten, Ausgang, Version).
type Node struct {
	Op     string         `json:"op"`
	Name   string         `json:"name"`
	Inputs [][]int        `json:"inputs"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

type Graph struct {
	Nodes      []Node         `json:"nodes"`
	ArgNodes   []int          `json:"arg_nodes"`
	Heads      [][]int        `json:"heads"`
	Attrs      map[string]any `json:"attrs,omitempty"`
	NodeRowPtr []int          `json:"node_row_ptr,omitempty"`
}

// ParseGraph dekodiert s und prueft alle Knoten-Referenzen
func ParseGraph(s string) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadGraph, err)
	}

	n := len(g.Nodes)
	valid := func(i int) bool { return i >= 0 && i < n }

	for _, i := range g.ArgNodes {
		if !valid(i) {
			return nil, fmt.Errorf("%w: arg node %d out of range", ErrBadGraph, i)
		}
	}

	for _, h := range g.Heads {
		if len(h) == 0 || !valid(h[0]) {
			return nil, fmt.Errorf("%w: head %v out of range", ErrBadGraph, h)
		}
	}

	for i, node := range g.Nodes {
		for _, in := range node.Inputs {
			if len(in) == 0 || !valid(in[0]) {
				return nil, fmt.Errorf("%w: node %d (%s) input %v out of range", ErrBadGraph, i, node.Name, in)
			}
		}
	}

	return &g, nil
}

// FuncNames gibt die Namen der Bibliotheks-Funktionen aller tvm_op Knoten
// in Graph-Reihenfolge zurueck, jeden Namen einmal
func (g *Graph) FuncNames() []string {
	var names []string
	for _, node := range g.Nodes {
		if node.Op != "tvm_op" {
			continue
		}

		if name, ok := node.Attrs["func_name"].(string); ok && name != "" && name != "__nop" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	return names
}

// InputNames gibt die Namen der Argument-Knoten zurueck
func (g *Graph) InputNames() []string {
	names := make([]string, 0, len(g.ArgNodes))
	for _, i := range g.ArgNodes {
		names = append(names, g.Nodes[i].Name)
	}

	return names
}
