// Command sablec drives the sable lowering pipeline.
//
// Usage:
//
//	sablec lower module.yaml                  # Lower fully and emit low-level text
//	sablec lower --stage=mem --emit=text m.yaml
//	sablec verify module.yaml                 # Build and structurally verify
//	sablec version
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sableir/sable"
	"github.com/sableir/sable/ir"
	"github.com/sableir/sable/llir"
	"github.com/sableir/sable/lower"
	"github.com/sableir/sable/modfile"
	"github.com/sableir/sable/pass"
)

const version = "0.1.0-dev"

type rootOptions struct {
	verbose bool
}

func (o *rootOptions) logger() *slog.Logger {
	if !o.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "sablec",
		Short:         "sablec lowers hi-dialect modules to the low-level form",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug-level rewrite and pass tracing on stderr")

	cmd.AddCommand(newLowerCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

type lowerOptions struct {
	*rootOptions
	stage  string
	emit   string
	output string
}

func newLowerCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &lowerOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lower <module.yaml>",
		Short: "Run the lowering pipeline over a module",
		Long: `Lower a hi-dialect module through the legalization pipeline.

--stage selects how far to lower: func stops after function shapes,
mem after memory legalization, full runs all three stages. --emit
selects the output: text prints the module in generic form, llir emits
the low-level representation (full stage only).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLower(opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.stage, "stage", "full", "pipeline stage to stop after (func|mem|full)")
	cmd.Flags().StringVar(&opts.emit, "emit", "llir", "output form (text|llir)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func runLower(opts *lowerOptions, path string) error {
	m, err := loadModule(path)
	if err != nil {
		return err
	}

	logger := opts.logger()
	reg := sable.NewDialectRegistry()
	pl := pass.NewPipeline(reg, logger)
	switch opts.stage {
	case "func":
		pl.Add(lower.NewFuncShapePass(logger))
	case "mem":
		pl.Add(lower.NewFuncShapePass(logger), lower.NewMemoryPass(logger))
	case "full":
		pl.Add(
			lower.NewFuncShapePass(logger),
			lower.NewMemoryPass(logger),
			lower.NewLLConversionPass(logger),
		)
	default:
		return fmt.Errorf("unknown stage %q: must be func, mem or full", opts.stage)
	}

	if err := pl.Run(m); err != nil {
		return err
	}
	if errs := ir.Verify(m); len(errs) > 0 {
		return fmt.Errorf("lowered module failed verification: %v", errs[0])
	}

	var out []byte
	switch opts.emit {
	case "text":
		out = ir.Print(m)
	case "llir":
		if opts.stage != "full" {
			return fmt.Errorf("--emit=llir requires --stage=full")
		}
		out, err = llir.NewBackend(llir.DefaultOptions()).Compile(m)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown emit form %q: must be text or llir", opts.emit)
	}

	if opts.output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(opts.output, out, 0o644)
}

func newVerifyCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <module.yaml>",
		Short: "Build a module and check its structural invariants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModule(args[0])
			if err != nil {
				return err
			}
			errs := ir.Verify(m)
			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d verification error(s)", len(errs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sablec version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sablec version %s\n", version)
		},
	}
}

func loadModule(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := modfile.Load(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		var perr *pass.PassError
		if errors.As(err, &perr) {
			fmt.Fprintf(os.Stderr, "sablec: pass %q (stage %d) failed: %v\n", perr.Name, perr.Index, perr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "sablec: %v\n", err)
		}
		os.Exit(1)
	}
}
