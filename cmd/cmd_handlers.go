// cmd_handlers.go - Handler fuer package, plan, inspect und funcs
// Hauptfunktionen: PackageHandler, PlanHandler, InspectHandler, FuncsHandler
package cmd

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/relayexec/relayexec/envconfig"
	"github.com/relayexec/relayexec/executor"
	"github.com/relayexec/relayexec/ffi"
	"github.com/relayexec/relayexec/graphexec"
	"github.com/relayexec/relayexec/ir"
	"github.com/relayexec/relayexec/module"
)

// PackageHandler - Baut eine GraphExecutorFactory und exportiert sie
func PackageHandler(cmd *cobra.Command, args []string) error {
	graphPath, _ := cmd.Flags().GetString("graph")
	paramsPath, _ := cmd.Flags().GetString("params")
	libPath, _ := cmd.Flags().GetString("lib")
	name, _ := cmd.Flags().GetString("name")
	output, _ := cmd.Flags().GetString("output")

	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	graphJSON, err := os.ReadFile(graphPath)
	if err != nil {
		return err
	}

	params, err := loadParams(paramsPath)
	if err != nil {
		return err
	}

	lib, err := module.LoadFile(libPath)
	if err != nil {
		return err
	}

	f, err := executor.NewGraphExecutorFactory(nil, target, string(graphJSON), lib, cmp.Or(name, envconfig.ModuleName()), params)
	if err != nil {
		return err
	}

	if err := f.ExportLibrary(output, nil, nil, nil); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %s (%d params, target %s)\n", output, params.Len(), target)
	return nil
}

// PlanHandler - Zeigt das Workspace-Layout der Parameter fuer einen AOT-Runner
func PlanHandler(cmd *cobra.Command, args []string) error {
	paramsPath, _ := cmd.Flags().GetString("params")
	inputs, _ := cmd.Flags().GetInt("inputs")
	outputs, _ := cmd.Flags().GetInt("outputs")
	size, _ := cmd.Flags().GetInt("workspace")
	if size <= 0 {
		size = int(envconfig.WorkspaceSize())
	}

	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	params, err := loadParams(paramsPath)
	if err != nil {
		return err
	}

	runner := ir.NewAOTRunner(inputs, outputs)
	irMod, err := ir.NewModule(runner)
	if err != nil {
		return err
	}

	f, err := executor.NewAOTExecutorFactory(irMod, target, runner, module.NewBlobModule("c", nil, nil), envconfig.ModuleName(), params)
	if err != nil {
		return err
	}

	ws, offsets, err := f.PlanWorkspace(size)
	if err != nil {
		return err
	}

	var data [][]string
	for _, name := range f.ListParamNames() {
		arr, err := f.GetParamByName(name)
		if err != nil {
			return err
		}

		data = append(data, []string{name, arr.DType().String(), formatShape(arr.Shape()), strconv.Itoa(offsets[name]), strconv.Itoa(arr.NumBytes())})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "runner %s\n", runner)
	renderTable(w, []string{"NAME", "DTYPE", "SHAPE", "OFFSET", "BYTES"}, data)
	fmt.Fprintf(w, "\nworkspace %d / %d bytes\n", ws.Used(), ws.Size())
	return nil
}

// maxValueWidth begrenzt die VALUES-Spalte von inspect
const maxValueWidth = 60

// InspectHandler - Zeigt Metadaten und Parameter eines exportierten Containers
func InspectHandler(cmd *cobra.Command, args []string) error {
	m, err := graphexec.Load(args[0])
	if err != nil {
		return err
	}

	lib := m.Lib()
	libSize := "-"
	if b, ok := lib.(*module.BlobModule); ok {
		libSize = strconv.Itoa(b.Len())
	}

	w := cmd.OutOrStdout()
	renderTable(w, nil, [][]string{
		{"name", m.Name()},
		{"library", lib.TypeKey()},
		{"library bytes", libSize},
		{"nodes", strconv.Itoa(len(m.Graph().Nodes))},
		{"inputs", strings.Join(m.Graph().InputNames(), ", ")},
		{"functions", strings.Join(m.Graph().FuncNames(), ", ")},
	})

	params := m.Params()
	if len(params) == 0 {
		return nil
	}

	var data [][]string
	for _, p := range params {
		values := runewidth.Truncate(p.Value.String(), maxValueWidth, "...")
		data = append(data, []string{p.Name, p.Value.DType().String(), formatShape(p.Value.Shape()), values})
	}

	fmt.Fprintln(w)
	renderTable(w, []string{"PARAM", "DTYPE", "SHAPE", "VALUES"}, data)
	return nil
}

// FuncsHandler - Listet die registrierten globalen Funktionen
func FuncsHandler(cmd *cobra.Command, args []string) error {
	var data [][]string
	for _, name := range ffi.ListGlobalFuncNames() {
		if len(args) == 0 || strings.HasPrefix(name, args[0]) {
			data = append(data, []string{name})
		}
	}

	renderTable(cmd.OutOrStdout(), []string{"NAME"}, data)
	return nil
}

func resolveTarget(cmd *cobra.Command) (ir.Target, error) {
	s, _ := cmd.Flags().GetString("target")
	return ir.ParseTarget(cmp.Or(s, envconfig.Target()))
}

// loadParams liest YAML oder JSON, ein leerer Pfad ergibt keine Parameter
func loadParams(path string) (*executor.ParamDict, error) {
	params := executor.NewParamDict()
	if path == "" {
		return params, nil
	}

	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(bts, params); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return params, nil
}

func formatShape(shape []int) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(dims, ", ") + ")"
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	if header != nil {
		table.SetHeader(header)
	}
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
