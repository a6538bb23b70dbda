// config.go - Konfiguration ueber Environment-Variablen
//
// Dieses Modul enthaelt:
// - Target: Standard-Target fuer Builds (RELAYEXEC_TARGET)
// - ModuleName: Standard-Name des Bibliotheks-Moduls (RELAYEXEC_MODULE_NAME)
// - Alignment: Ausrichtung exportierter Container (RELAYEXEC_ALIGNMENT)
// - WorkspaceSize: Groesse des AOT-Workspace (RELAYEXEC_WORKSPACE_SIZE)
// - LogLevel: Gibt Log-Level zurueck (RELAYEXEC_DEBUG)
//
// Getter-Fabriken und AsMap/Values liegen in config_utils.go
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Target ist der Target-String fuer Builds ohne explizites Target
	Target = String("RELAYEXEC_TARGET", "llvm")

	// ModuleName ist der Name, unter dem das Bibliotheks-Modul registriert wird
	ModuleName = String("RELAYEXEC_MODULE_NAME", "default")

	// Alignment der Tensor-Daten in exportierten Containern (Bytes)
	Alignment = PowerOfTwo("RELAYEXEC_ALIGNMENT", 32)

	// WorkspaceSize ist die Groesse des AOT-Workspace
	WorkspaceSize = Bytes("RELAYEXEC_WORKSPACE_SIZE", 1<<20)

	// KeepTemp behaelt temporaere Export-Dateien nach dem Compiler-Aufruf
	KeepTemp = Bool("RELAYEXEC_KEEP_TEMP")
)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via RELAYEXEC_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("RELAYEXEC_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
