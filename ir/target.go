// target.go - Kompilierungs-Ziel (Target)
//
// Dieses Modul enthaelt:
// - Target: Art (llvm, c, cuda, ...), Keys und Attribute
// - ParseTarget: Parst Strings wie "llvm -mtriple=aarch64-linux-gnu -link-params"
// - String: Kanonische Darstellung mit sortierten Attributen
package ir

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var ErrInvalidTarget = errors.New("ir: invalid target")

// Target beschreibt das Ziel eines Builds. Unveraenderlich nach ParseTarget.
type Target struct {
	Kind  string
	Keys  []string
	Attrs map[string]string
}

// ParseTarget parst "<kind> [-key=value|-flag]..."
func ParseTarget(s string) (Target, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "-") {
		return Target{}, fmt.Errorf("%w: missing kind in %q", ErrInvalidTarget, s)
	}

	t := Target{Kind: fields[0], Attrs: make(map[string]string)}
	for _, field := range fields[1:] {
		opt := strings.TrimLeft(field, "-")
		if opt == field || opt == "" {
			return Target{}, fmt.Errorf("%w: bad option %q", ErrInvalidTarget, field)
		}

		key, value, ok := strings.Cut(opt, "=")
		if key == "" {
			return Target{}, fmt.Errorf("%w: bad option %q", ErrInvalidTarget, field)
		}
		if !ok {
			value = "true"
		}

		if key == "keys" {
			t.Keys = strings.Split(value, ",")
			continue
		}

		t.Attrs[key] = value
	}

	if len(t.Keys) == 0 {
		t.Keys = defaultKeys(t.Kind)
	}

	return t, nil
}

// MustParseTarget ist ParseTarget fuer Konstanten
func MustParseTarget(s string) Target {
	t, err := ParseTarget(s)
	if err != nil {
		panic(err)
	}

	return t
}

func defaultKeys(kind string) []string {
	switch kind {
	case "llvm", "c":
		return []string{"cpu"}
	case "cuda", "rocm", "vulkan", "metal", "opencl":
		return []string{kind, "gpu"}
	default:
		return []string{kind}
	}
}

// Attr gibt ein Attribut zurueck
func (t Target) Attr(key string) (string, bool) {
	v, ok := t.Attrs[key]
	return v, ok
}

// Bool meldet ob ein Flag-Attribut gesetzt ist
func (t Target) Bool(key string) bool {
	return t.Attrs[key] == "true"
}

// IsZero meldet ein nicht gesetztes Target
func (t Target) IsZero() bool {
	return t.Kind == ""
}

func (t Target) String() string {
	if t.IsZero() {
		return ""
	}

	parts := []string{t.Kind}
	if !slices.Equal(t.Keys, defaultKeys(t.Kind)) {
		parts = append(parts, "-keys="+strings.Join(t.Keys, ","))
	}

	for _, k := range slices.Sorted(maps.Keys(t.Attrs)) {
		if v := t.Attrs[k]; v == "true" {
			parts = append(parts, "-"+k)
		} else {
			parts = append(parts, "-"+k+"="+v)
		}
	}

	return strings.Join(parts, " ")
}
