// Package main is the entry point for the intcalc calculator.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/intcalc/pkg/config"
	"github.com/lemonberrylabs/intcalc/pkg/expr"
	"github.com/lemonberrylabs/intcalc/pkg/logging"
	"github.com/lemonberrylabs/intcalc/pkg/runtime"
	"github.com/lemonberrylabs/intcalc/pkg/store"
	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "intcalc",
		Short:         "Evaluate an integer expression read from stdin",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runStdin,
	}
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("intcalc version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file (env INTCALC_CONFIG)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (env INTCALC_LOG_LEVEL)")
	pf.Bool("strict", false, "Reject trailing tokens instead of ignoring them")
	pf.Bool("trace", false, "Log lexer transitions and parser rules at debug level")
	pf.Bool("tree", false, "Print the parse tree before the result")
	pf.Bool("no-tokens", false, "Do not print the token dump")

	evalCmd := &cobra.Command{
		Use:   "eval EXPR...",
		Short: "Evaluate the expression given as arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEval,
	}
	rootCmd.AddCommand(evalCmd, newReplCmd(), newServeCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// loadConfig builds the effective config: file and environment from
// config.Load, then any flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := envOrDefault("INTCALC_CONFIG", "")
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if flags.Changed("strict") {
		cfg.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("trace") {
		cfg.Trace, _ = flags.GetBool("trace")
	}
	if v, _ := flags.GetBool("no-tokens"); v {
		cfg.ShowTokens = false
	}
	return cfg, cfg.Validate()
}

// printer writes evaluation results for the command-line modes.
type printer struct {
	out        io.Writer
	logger     zerolog.Logger
	showTokens bool
	showTree   bool
}

func newPrinter(cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger) *printer {
	tree, _ := cmd.Flags().GetBool("tree")
	return &printer{
		out:        cmd.OutOrStdout(),
		logger:     logger,
		showTokens: cfg.ShowTokens,
		showTree:   tree,
	}
}

// print writes the token dump, the optional tree and the value. Tokens are
// printed even when evaluation failed.
func (p *printer) print(res *runtime.Result, err error, terminator string) error {
	if p.showTokens && res != nil {
		fmt.Fprint(p.out, expr.FormatTokens(res.Tokens))
	}
	if err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		p.logger.Warn().Str("tag", d.Tag).Msg(d.Message)
	}
	if p.showTree {
		fmt.Fprint(p.out, res.Tree.Dump())
	}
	fmt.Fprintf(p.out, "%d%s", res.Value, terminator)
	return nil
}

// setup loads the config and builds the engine. With history the engine
// records into a store sized by history.capacity.
func setup(cmd *cobra.Command, history bool) (*config.Config, *runtime.Engine, *printer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "intcalc")

	var s *store.Store
	if history {
		s = store.New(cfg.History.Capacity)
	}
	engine := runtime.NewEngine(runtime.OptionsFromConfig(cfg), logger, s)
	return cfg, engine, newPrinter(cmd, cfg, logger), nil
}

func runStdin(cmd *cobra.Command, args []string) error {
	_, engine, p, err := setup(cmd, false)
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read stdin: %w", err)
	}

	res, err := engine.Execute(cmd.Context(), line)
	return p.print(res, err, "")
}

func runEval(cmd *cobra.Command, args []string) error {
	_, engine, p, err := setup(cmd, false)
	if err != nil {
		return err
	}
	res, err := engine.Execute(cmd.Context(), strings.Join(args, " "))
	return p.print(res, err, "\n")
}

// errorMessage is what main prints for a failed command: the bare message
// for evaluation errors, the full error otherwise.
func errorMessage(err error) string {
	if ce, ok := types.AsCalcError(err); ok {
		return ce.Message
	}
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	return "Error: " + err.Error()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
