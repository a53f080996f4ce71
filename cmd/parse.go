package cmd

import (
	"io"

	"luascan/internal/application/dto"

	"github.com/spf13/cobra"
)

// newParseCmd creates the parse command.
func newParseCmd() *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "parse [FILE...]",
		Short: "Print the function tree of Lua files",
		Long: `Scan Lua files and print a report per file: the nested function tree,
the global functions, and diagnostics for unterminated definitions.

Use - to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, &opts, args)
		},
	}

	opts.register(cmd)
	return cmd
}

func runParse(cmd *cobra.Command, opts *outputOptions, args []string) error {
	paths, err := opts.paths(args)
	if err != nil {
		return err
	}

	appCfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, err := opts.resolveFormat(appCfg.Output.Format)
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
		if format != formatText {
			return writeStructured(w, format, singleOrAll(docs))
		}
		for _, doc := range docs {
			if err := writeDocumentText(w, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// documentsGlobals keeps the structured globals report of each document.
func documentsGlobals(docs []*dto.LuaDocument) []fileGlobals {
	reports := make([]fileGlobals, 0, len(docs))
	for _, doc := range docs {
		reports = append(reports, fileGlobals{FilePath: doc.FilePath, GlobalFunctions: doc.GlobalFunctions})
	}
	return reports
}
