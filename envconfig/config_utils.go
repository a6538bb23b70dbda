// config_utils.go - Getter-Fabriken und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - Bool/String: Einfache Getter, String mit Default-Wert
// - PowerOfTwo: Zweierpotenz-Getter fuer Ausrichtungen
// - Bytes: Groessen-Getter mit Einheiten (KiB, MiB, GiB)
// - EnvVar/AsMap/Values: Alle Variablen mit Werten und Beschreibungen
package envconfig

import (
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// =============================================================================
// Einfache Getter
// =============================================================================

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false).
// Nicht parsebare Werte gelten als gesetzt.
func Bool(k string) func() bool {
	return func() bool {
		s := Var(k)
		if s == "" {
			return false
		}

		b, err := strconv.ParseBool(s)
		return err != nil || b
	}
}

// String gibt eine Funktion zurueck, die einen String mit Default-Wert liest
func String(k, defaultValue string) func() string {
	return func() string {
		if s := Var(k); s != "" {
			return s
		}
		return defaultValue
	}
}

// =============================================================================
// Zahlen-Getter
// =============================================================================

// minAlignment ist die kleinste erlaubte Ausrichtung
const minAlignment = 8

// PowerOfTwo gibt eine Funktion zurueck, die eine Zweierpotenz >= 8 liest.
// Andere Werte werden mit einer Warnung durch den Default ersetzt.
func PowerOfTwo(key string, defaultValue uint) func() uint {
	return func() uint {
		s := Var(key)
		if s == "" {
			return defaultValue
		}

		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil || n < minAlignment || bits.OnesCount64(n) != 1 {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			return defaultValue
		}

		return uint(n)
	}
}

var byteUnits = []struct {
	suffix string
	shift  uint
}{
	{"GiB", 30}, {"MiB", 20}, {"KiB", 10},
	{"G", 30}, {"M", 20}, {"K", 10},
	{"B", 0},
}

// Bytes gibt eine Funktion zurueck, die eine Groesse wie "80", "64KiB"
// oder "1M" liest. Einheiten sind binaer.
func Bytes(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		s := Var(key)
		if s == "" {
			return defaultValue
		}

		n, err := parseBytes(s)
		if err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue, "error", err)
			return defaultValue
		}

		return n
	}
}

func parseBytes(s string) (uint64, error) {
	var shift uint
	for _, u := range byteUnits {
		if rest, ok := strings.CutSuffix(s, u.suffix); ok {
			s, shift = strings.TrimSpace(rest), u.shift
			break
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}

	if n > uint64(math.MaxUint64)>>shift {
		return 0, fmt.Errorf("size %d<<%d overflows", n, shift)
	}

	return n << shift, nil
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"RELAYEXEC_DEBUG":          {"RELAYEXEC_DEBUG", LogLevel(), "Show additional debug information (e.g. RELAYEXEC_DEBUG=1)"},
		"RELAYEXEC_TARGET":         {"RELAYEXEC_TARGET", Target(), "Target string used when none is given (default \"llvm\")"},
		"RELAYEXEC_MODULE_NAME":    {"RELAYEXEC_MODULE_NAME", ModuleName(), "Name of the library module inside a package (default \"default\")"},
		"RELAYEXEC_ALIGNMENT":      {"RELAYEXEC_ALIGNMENT", Alignment(), "Tensor data alignment of exported containers, a power of two (default 32)"},
		"RELAYEXEC_WORKSPACE_SIZE": {"RELAYEXEC_WORKSPACE_SIZE", WorkspaceSize(), "AOT workspace size, e.g. 80 or 64KiB (default 1MiB)"},
		"RELAYEXEC_KEEP_TEMP":      {"RELAYEXEC_KEEP_TEMP", KeepTemp(), "Keep temporary container files handed to the compiler"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
