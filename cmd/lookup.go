package cmd

import (
	"io"

	"luascan/internal/adapter/outbound/repository"
	"luascan/internal/application/service"

	"github.com/spf13/cobra"
)

// newLookupCmd creates the lookup command.
func newLookupCmd() *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "lookup NAME",
		Short: "Find indexed global functions by name",
		Long: `Search the PostgreSQL index for global functions called NAME and print
where each one is defined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, &opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: json, yaml or text (default: text)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the result to this file instead of stdout")
	return cmd
}

func runLookup(cmd *cobra.Command, opts *outputOptions, name string) error {
	appCfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, err := opts.resolveFormat(formatText)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := connectDatabase(ctx, appCfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, finish, err := newAnalysisService(ctx, appCfg, cmd.InOrStdin(),
		service.WithFunctionIndex(repository.NewPostgreSQLFunctionRepository(pool), nil),
	)
	if err != nil {
		return err
	}
	defer finish()

	functions, err := svc.LookupGlobalFunction(ctx, name)
	if err != nil {
		return err
	}

	return opts.writeTo(cmd, func(w io.Writer) error {
		if format == formatText {
			return writeIndexedText(w, functions)
		}
		return writeStructured(w, format, functions)
	})
}
