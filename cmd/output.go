package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"luascan/internal/application/dto"
	"luascan/internal/port/outbound"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// outputOptions are the input and output flags shared by the report commands.
type outputOptions struct {
	files  []string
	format string
	out    string
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.files, "file", "f", nil, "Lua file to scan, - for stdin (repeatable)")
	cmd.Flags().StringVar(&o.format, "format", "", "Output format: json, yaml or text (default: output.format)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write the report to this file instead of stdout")
}

// paths merges --file values and positional arguments.
func (o *outputOptions) paths(args []string) ([]string, error) {
	paths := make([]string, 0, len(o.files)+len(args))
	paths = append(paths, o.files...)
	paths = append(paths, args...)
	if len(paths) == 0 {
		return nil, errors.New("no input files: pass --file or file arguments")
	}
	return paths, nil
}

// resolveFormat returns the --format value, or fallback when it is unset.
func (o *outputOptions) resolveFormat(fallback string) (string, error) {
	format := strings.ToLower(o.format)
	if format == "" {
		format = strings.ToLower(fallback)
	}
	switch format {
	case formatJSON, formatYAML, formatText:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// writeTo runs write against --out, or the command output when it is unset.
func (o *outputOptions) writeTo(cmd *cobra.Command, write func(io.Writer) error) (err error) {
	if o.out == "" {
		return write(cmd.OutOrStdout())
	}

	file, err := os.Create(o.out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return write(file)
}

// writeStructured encodes value as JSON or YAML.
func writeStructured(w io.Writer, format string, value any) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}

// singleOrAll unwraps one-element slices so a single file reports as an object.
func singleOrAll[T any](items []T) any {
	if len(items) == 1 {
		return items[0]
	}
	return items
}

// writeDocumentText renders the function tree and diagnostics of doc.
func writeDocumentText(w io.Writer, doc *dto.LuaDocument) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %d functions, %d global, %d unterminated\n",
		doc.FilePath, doc.Stats.TotalFunctions, doc.Stats.GlobalFunctions, doc.Stats.UnterminatedFunctions)

	var writeNode func(node dto.FunctionNode)
	writeNode = func(node dto.FunctionNode) {
		b.WriteString(strings.Repeat("  ", node.Depth+1))
		if node.IsLocal {
			b.WriteString("local ")
		}
		fmt.Fprintf(&b, "%s(%s) %d:%d", node.Name, strings.Join(node.Arguments, ", "),
			node.Start.Row+1, node.Start.Column+1)
		if !node.Closed {
			b.WriteString(" unterminated")
		}
		b.WriteString("\n")
		for _, child := range node.Children {
			writeNode(child)
		}
	}
	for _, node := range doc.Functions {
		writeNode(node)
	}

	for _, diagnostic := range doc.Diagnostics {
		fmt.Fprintf(&b, "  ! %d:%d %s\n", diagnostic.Start.Row+1, diagnostic.Start.Column+1, diagnostic.Message)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// fileGlobals is the structured globals report of one file.
type fileGlobals struct {
	FilePath        string               `json:"file_path"        yaml:"file_path"`
	GlobalFunctions []dto.GlobalFunction `json:"global_functions" yaml:"global_functions"`
}

// writeGlobalsText writes one name(args) line per global function. With more
// than one file every line is prefixed by its path.
func writeGlobalsText(w io.Writer, docs []*dto.LuaDocument) error {
	var b strings.Builder
	for _, doc := range docs {
		for _, fn := range doc.GlobalFunctions {
			if len(docs) > 1 {
				b.WriteString(doc.FilePath)
				b.WriteString(": ")
			}
			b.WriteString(fn.Signature())
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeIndexedText writes one path:offset name(args) line per stored function.
func writeIndexedText(w io.Writer, functions []outbound.IndexedFunction) error {
	var b strings.Builder
	for _, fn := range functions {
		fmt.Fprintf(&b, "%s:%d %s(%s)\n", fn.FilePath, fn.StartOffset, fn.Name, strings.Join(fn.Arguments, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
