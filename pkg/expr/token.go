// Package expr implements the integer expression lexer, parser and evaluator.
// It handles single-line expressions made of integer literals in decimal,
// hexadecimal, octal and binary form, the + - * / operators, parentheses
// and unary sign.
package expr

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenIntLiteral TokenType = iota // integer literal
	TokenPlus                        // +
	TokenMinus                       // -
	TokenStar                        // *
	TokenSlash                       // /
	TokenLParen                      // (
	TokenRParen                      // )
)

// Token represents a single lexical token.
type Token struct {
	Type  TokenType
	Value string // raw text as consumed by the lexer
}

// String returns the upper-case kind name used in token dumps.
func (t TokenType) String() string {
	switch t {
	case TokenIntLiteral:
		return "INTLTR"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINU"
	case TokenStar:
		return "MULT"
	case TokenSlash:
		return "DIV"
	case TokenLParen:
		return "LPARENT"
	case TokenRParen:
		return "RPARENT"
	default:
		return "UNKNOWN"
	}
}

// ParseTokenType is the inverse of TokenType.String.
func ParseTokenType(name string) (TokenType, error) {
	switch name {
	case "INTLTR":
		return TokenIntLiteral, nil
	case "PLUS":
		return TokenPlus, nil
	case "MINU":
		return TokenMinus, nil
	case "MULT":
		return TokenStar, nil
	case "DIV":
		return TokenSlash, nil
	case "LPARENT":
		return TokenLParen, nil
	case "RPARENT":
		return TokenRParen, nil
	default:
		return 0, fmt.Errorf("unknown token kind %q", name)
	}
}

// String formats the token as a dump line without the trailing newline.
func (t Token) String() string {
	return t.Type.String() + "  " + t.Value
}

// FormatTokens renders one "<KIND>  <TEXT>" line per token.
func FormatTokens(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseTokenDump reads back the output of FormatTokens.
func ParseTokenDump(dump string) ([]Token, error) {
	var tokens []Token
	for i, line := range strings.Split(dump, "\n") {
		if line == "" {
			continue
		}
		kind, text, ok := strings.Cut(line, "  ")
		if !ok {
			return nil, fmt.Errorf("line %d: malformed token line %q", i+1, line)
		}
		tt, err := ParseTokenType(kind)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		tokens = append(tokens, Token{Type: tt, Value: text})
	}
	return tokens, nil
}
