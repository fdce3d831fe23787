// Package runtime drives one evaluation: lexing a line, parsing it and
// classifying what went wrong.
package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/intcalc/pkg/config"
	"github.com/lemonberrylabs/intcalc/pkg/expr"
	"github.com/lemonberrylabs/intcalc/pkg/logging"
	"github.com/lemonberrylabs/intcalc/pkg/store"
	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// Options controls how strictly input is treated.
type Options struct {
	Strict         bool // trailing tokens are an error rather than a diagnostic
	MaxInputLength int
	Trace          bool
}

// OptionsFromConfig extracts engine options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Strict:         cfg.Strict,
		MaxInputLength: cfg.MaxInputLength,
		Trace:          cfg.Trace,
	}
}

// Result is the outcome of evaluating one line. Tokens and Diagnostics are
// filled in even when Execute returns an error.
type Result struct {
	ID          string // store ID, empty when the engine has no store
	Expression  string
	Tokens      []expr.Token
	Tree        *expr.Node
	Value       int64
	Diagnostics []types.Diagnostic
}

// Engine evaluates expressions. It is safe for concurrent use: every call
// builds its own lexer and parser.
type Engine struct {
	opts   Options
	logger zerolog.Logger
	store  *store.Store
}

// NewEngine creates an engine. If s is non-nil every evaluation is recorded
// in it.
func NewEngine(opts Options, logger zerolog.Logger, s *store.Store) *Engine {
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = config.DefaultMaxInputLength
	}
	return &Engine{opts: opts, logger: logger, store: s}
}

// MaxInputLength returns the longest line the engine evaluates.
func (e *Engine) MaxInputLength() int {
	return e.opts.MaxInputLength
}

// Store returns the engine's history store, which may be nil.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Execute evaluates the first line of input.
func (e *Engine) Execute(ctx context.Context, input string) (*Result, error) {
	line, _, _ := strings.Cut(input, "\n")
	line = strings.TrimSuffix(line, "\r")
	res := &Result{Expression: line}

	err := e.evaluate(ctx, res)
	if e.store != nil {
		rec := e.store.Record(res.Expression, res.Value, StoreTokens(res.Tokens), res.Diagnostics, err)
		res.ID = rec.ID
	}

	ev := e.logger.Debug()
	if err != nil {
		ev = e.logger.Info().Err(err)
	}
	ev.Str("expression", res.Expression).
		Int("tokens", len(res.Tokens)).
		Int("diagnostics", len(res.Diagnostics)).
		Int64("value", res.Value).
		Msg("evaluated")
	return res, err
}

func (e *Engine) evaluate(ctx context.Context, res *Result) error {
	if len(res.Expression) > e.opts.MaxInputLength {
		res.Expression = truncate(res.Expression, e.opts.MaxInputLength)
		return types.NewInputLimitError(e.opts.MaxInputLength)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tracer := logging.Tracer(e.logger, e.opts.Trace)

	lexer := expr.NewLexer(tracer)
	res.Tokens = lexer.Tokenize(res.Expression)
	for _, d := range lexer.Dropped() {
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
			Tag:     types.TagLexicalError,
			Message: d.String(),
		})
	}

	p := expr.NewParser(res.Tokens, tracer)
	root := p.GetTree()
	if root == nil {
		if err := p.Err(); err != nil {
			return err
		}
		return types.NewMalformedExpressionError()
	}
	if err := p.Err(); err != nil {
		return err
	}

	if n := p.Remaining(); n > 0 {
		if e.opts.Strict {
			return types.NewTrailingInputError(n)
		}
		res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
			Tag:     types.TagTrailingInputError,
			Message: fmt.Sprintf("ignored %d trailing token(s) starting at %s", n, res.Tokens[p.Pos()]),
		})
	}

	res.Tree = root
	res.Value = root.Value
	return nil
}

// truncatedMarker ends an expression cut down to the input limit.
const truncatedMarker = "..."

// truncate cuts s to at most n bytes plus truncatedMarker, dropping any
// rune split by the cut.
func truncate(s string, n int) string {
	return strings.ToValidUTF8(s[:n], "") + truncatedMarker
}

// StoreTokens converts tokens to their stored form.
func StoreTokens(tokens []expr.Token) []store.Token {
	out := make([]store.Token, len(tokens))
	for i, tok := range tokens {
		out[i] = store.Token{Kind: tok.Type.String(), Text: tok.Value}
	}
	return out
}
