package expr

import (
	"fmt"

	"github.com/rs/zerolog"
)

// State is the lexer's finite-state machine state.
type State int

const (
	StateEmpty      State = iota // no token in progress
	StateIntLiteral              // accumulating a literal such as 1, 017, 0xAB, 0b101
	StateOperator                // after an operator or parenthesis
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateIntLiteral:
		return "IntLiteral"
	case StateOperator:
		return "Operator"
	default:
		return "Unknown"
	}
}

// lineEnd is fed after the real input so the last token is flushed.
const lineEnd = '\n'

// Drop records input the lexer discarded without producing a token.
type Drop struct {
	Char      byte   // the character that could not be placed
	Discarded string // partial token thrown away with it, if any
}

func (d Drop) String() string {
	if d.Discarded != "" {
		return fmt.Sprintf("dropped %q (discarding %q)", string(d.Char), d.Discarded)
	}
	return fmt.Sprintf("dropped %q", string(d.Char))
}

// Lexer is a character-at-a-time tokenizer. A Lexer handles one line at a
// time and is not safe for concurrent use.
type Lexer struct {
	state   State
	buf     []byte
	dropped []Drop
	logger  zerolog.Logger
}

// NewLexer creates a lexer in the Empty state. Transitions are traced at
// debug level on logger.
func NewLexer(logger zerolog.Logger) *Lexer {
	return &Lexer{logger: logger}
}

// Reset returns the lexer to the Empty state with an empty buffer.
func (l *Lexer) Reset() {
	l.state = StateEmpty
	l.buf = l.buf[:0]
	l.dropped = nil
}

// State returns the current state.
func (l *Lexer) State() State {
	return l.state
}

// Dropped returns the input discarded since the last Reset.
func (l *Lexer) Dropped() []Drop {
	return l.dropped
}

// Tokenize resets the lexer, feeds line followed by the line terminator and
// returns every token produced.
func (l *Lexer) Tokenize(line string) []Token {
	l.Reset()
	var tokens []Token
	for i := 0; i < len(line); i++ {
		if tok, ok := l.Next(line[i]); ok {
			tokens = append(tokens, tok)
		}
	}
	if tok, ok := l.Next(lineEnd); ok {
		tokens = append(tokens, tok)
	}
	return tokens
}

// Next advances the state machine by one character. It returns a token when
// ch completes one; the character that completed it stays buffered and
// starts the next token.
func (l *Lexer) Next(ch byte) (Token, bool) {
	if ch == ' ' {
		return Token{}, false
	}

	from := l.state
	tok, ok := l.step(ch)
	if l.logger.GetLevel() <= zerolog.DebugLevel {
		ev := l.logger.Debug().
			Str("from", from.String()).
			Str("to", l.state.String()).
			Str("input", string(ch)).
			Str("buffer", string(l.buf))
		if ok {
			ev = ev.Stringer("token", tok)
		}
		ev.Msg("lexer transition")
	}
	return tok, ok
}

func (l *Lexer) step(ch byte) (Token, bool) {
	switch l.state {
	case StateEmpty:
		switch {
		case isLiteralChar(ch):
			l.buf = append(l.buf[:0], ch)
			l.state = StateIntLiteral
		case ch == '(' || ch == '-':
			l.buf = l.buf[:0]
			l.state = StateOperator
			tt, _ := classifyOperator(ch)
			return Token{Type: tt, Value: string(ch)}, true
		default:
			l.drop(ch)
		}
		return Token{}, false

	case StateIntLiteral:
		switch {
		case isLiteralChar(ch):
			l.buf = append(l.buf, ch)
		case isOperatorChar(ch):
			text := string(l.buf)
			tt, _ := Classify(text)
			tok := Token{Type: tt, Value: text}
			l.buf = append(l.buf[:0], ch)
			l.state = StateOperator
			return tok, true
		default:
			l.drop(ch)
		}
		return Token{}, false

	case StateOperator:
		if len(l.buf) == 1 {
			return l.flushPending(ch)
		}
		switch {
		case isLiteralChar(ch):
			l.buf = append(l.buf[:0], ch)
			l.state = StateIntLiteral
		case isOperatorChar(ch):
			if tt, ok := classifyOperator(ch); ok {
				return Token{Type: tt, Value: string(ch)}, true
			}
		default:
			l.drop(ch)
		}
		return Token{}, false
	}
	return Token{}, false
}

// flushPending emits the operator held in the buffer and reseeds the
// buffer with ch.
func (l *Lexer) flushPending(ch byte) (Token, bool) {
	pending := l.buf[0]
	switch {
	case isLiteralChar(ch):
		l.buf = append(l.buf[:0], ch)
		l.state = StateIntLiteral
	case isOperatorChar(ch):
		l.buf = append(l.buf[:0], ch)
		l.state = StateOperator
	default:
		l.buf = l.buf[:0]
		l.state = StateEmpty
		l.record(Drop{Char: ch})
	}

	tt, ok := classifyOperator(pending)
	if !ok {
		return Token{}, false
	}
	return Token{Type: tt, Value: string(pending)}, true
}

// drop discards ch together with any partial token and returns to Empty.
func (l *Lexer) drop(ch byte) {
	l.record(Drop{Char: ch, Discarded: string(l.buf)})
	l.buf = l.buf[:0]
	l.state = StateEmpty
}

func (l *Lexer) record(d Drop) {
	if d.Char == lineEnd && d.Discarded == "" {
		return
	}
	l.dropped = append(l.dropped, d)
}

// isLiteralChar reports whether ch may appear in an integer literal. Letters
// are accepted so radix prefixes and hex digits stay in one literal.
func isLiteralChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isOperatorChar reports whether ch ends a literal.
func isOperatorChar(ch byte) bool {
	switch ch {
	case '+', '-', '*', '/', '(', ')', lineEnd:
		return true
	}
	return false
}

func classifyOperator(ch byte) (TokenType, bool) {
	switch ch {
	case '+':
		return TokenPlus, true
	case '-':
		return TokenMinus, true
	case '*':
		return TokenStar, true
	case '/':
		return TokenSlash, true
	case '(':
		return TokenLParen, true
	case ')':
		return TokenRParen, true
	}
	return 0, false
}

// Classify maps the text of a completed token to its type: anything longer
// than one character is an integer literal.
func Classify(text string) (TokenType, bool) {
	if len(text) > 1 {
		return TokenIntLiteral, true
	}
	if len(text) == 0 {
		return 0, false
	}
	if isLiteralChar(text[0]) {
		return TokenIntLiteral, true
	}
	return classifyOperator(text[0])
}
