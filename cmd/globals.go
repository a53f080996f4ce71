package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

// newGlobalsCmd creates the globals command.
func newGlobalsCmd() *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "globals [FILE...]",
		Short: "List the globally visible functions of Lua files",
		Long: `Scan Lua files and list the functions visible at global scope: every
top-level function, and every nested function not declared local.

Prints one name(args) line per function unless --format asks for json or yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlobals(cmd, &opts, args)
		},
	}

	opts.register(cmd)
	return cmd
}

func runGlobals(cmd *cobra.Command, opts *outputOptions, args []string) error {
	paths, err := opts.paths(args)
	if err != nil {
		return err
	}

	appCfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, err := opts.resolveFormat(formatText)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, finish, err := newAnalysisService(ctx, appCfg, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer finish()

	docs, err := svc.AnalyzeFiles(ctx, paths)
	if err != nil {
		return err
	}

	return opts.writeTo(cmd, func(w io.Writer) error {
		if format == formatText {
			return writeGlobalsText(w, docs)
		}
		reports := documentsGlobals(docs)
		if len(reports) == 1 {
			return writeStructured(w, format, reports[0].GlobalFunctions)
		}
		return writeStructured(w, format, reports)
	})
}
