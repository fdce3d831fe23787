package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/intcalc/pkg/runtime"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE:  runRepl,
	}
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, engine, p, err := setup(cmd, true)
	if err != nil {
		return err
	}

	histPath := historyPath(cfg.REPL.HistoryFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	errOut := cmd.ErrOrStderr()
	for {
		line, err := ln.Prompt(cfg.REPL.Prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(p.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if quit := replCommand(p, engine, line); quit {
				return nil
			}
			continue
		}

		res, err := engine.Execute(cmd.Context(), line)
		if err := p.print(res, err, "\n"); err != nil {
			fmt.Fprintln(errOut, errorMessage(err))
		}
	}
}

// replCommand handles a ":" command and reports whether the REPL should exit.
func replCommand(p *printer, engine *runtime.Engine, line string) (quit bool) {
	switch line {
	case ":quit", ":q":
		return true
	case ":tokens":
		p.showTokens = !p.showTokens
		fmt.Fprintf(p.out, "token dump %s\n", onOff(p.showTokens))
	case ":tree":
		p.showTree = !p.showTree
		fmt.Fprintf(p.out, "tree dump %s\n", onOff(p.showTree))
	case ":history":
		evals := engine.Store().List(0)
		for i := len(evals) - 1; i >= 0; i-- {
			e := evals[i]
			if e.Error != nil {
				fmt.Fprintf(p.out, "%s  => %s\n", e.Expression, e.Error.Message)
				continue
			}
			fmt.Fprintf(p.out, "%s  => %d\n", e.Expression, e.Value)
		}
	default:
		fmt.Fprintln(p.out, "commands: :tokens :tree :history :quit")
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// historyPath resolves a relative history file against the home directory.
func historyPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}
