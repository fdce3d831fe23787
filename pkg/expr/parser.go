package expr

import (
	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// Parser is a backtracking recursive descent parser that evaluates as it
// builds the tree. Grammar, lowest precedence first:
//
//	Exp        -> AddExp
//	AddExp     -> MulExp { ('+' | '-') MulExp }
//	MulExp     -> UnaryExp { ('*' | '/') UnaryExp }
//	UnaryExp   -> PrimaryExp | UnaryOp UnaryExp
//	PrimaryExp -> Number | '(' Exp ')'
//	UnaryOp    -> '+' | '-'
//	Number     -> IntConst
//
// Every parse method either succeeds, leaving the cursor just past what it
// consumed, or returns nil with the cursor back where it started.
type Parser struct {
	tokens  []Token
	pos     int
	err     error // first semantic error on the current parse path
	limit   error // nesting limit hit; survives backtracking
	nesting int   // UnaryExp frames on the stack
	depth   int
	logger  zerolog.Logger
}

// MaxNestingDepth bounds how many unary operators and parentheses may
// enclose a single operand.
const MaxNestingDepth = 1000

// checkpoint is everything a failed alternative must put back.
type checkpoint struct {
	pos int
	err error
}

// NewParser creates a parser over tokens. Rule entry is traced at debug
// level on logger.
func NewParser(tokens []Token, logger zerolog.Logger) *Parser {
	return &Parser{tokens: tokens, logger: logger}
}

// ParseExpression tokenizes and parses a single line. Tokens left over after
// a complete expression are ignored.
func ParseExpression(input string) (*Node, error) {
	tokens := NewLexer(zerolog.Nop()).Tokenize(input)
	p := NewParser(tokens, zerolog.Nop())
	root := p.GetTree()
	if err := p.Err(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, types.NewMalformedExpressionError()
	}
	return root, nil
}

// GetTree parses the whole token sequence as an Exp. It returns nil when
// there are no tokens or when the tokens do not form an expression.
func (p *Parser) GetTree() *Node {
	p.pos = 0
	p.err = nil
	p.limit = nil
	p.nesting = 0
	if len(p.tokens) == 0 {
		return nil
	}
	return p.parseExp()
}

// Pos returns the index of the next unconsumed token.
func (p *Parser) Pos() int {
	return p.pos
}

// Remaining returns the number of tokens not consumed.
func (p *Parser) Remaining() int {
	return len(p.tokens) - p.pos
}

// Err returns the semantic error, such as division by zero, found while
// folding the accepted tree. After GetTree returns nil it reports whether the
// input was nested too deeply.
func (p *Parser) Err() error {
	if p.limit != nil {
		return p.limit
	}
	return p.err
}

func (p *Parser) mark() checkpoint {
	return checkpoint{pos: p.pos, err: p.err}
}

func (p *Parser) restore(c checkpoint) {
	p.pos = c.pos
	p.err = c.err
}

// at reports whether the current token has one of the given types.
func (p *Parser) at(want ...TokenType) bool {
	if p.pos >= len(p.tokens) {
		return false
	}
	for _, tt := range want {
		if p.tokens[p.pos].Type == tt {
			return true
		}
	}
	return false
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *Parser) trace(rule NodeKind) func() {
	if p.logger.GetLevel() > zerolog.DebugLevel {
		return func() {}
	}
	ev := p.logger.Debug().Str("rule", rule.String()).Int("pos", p.pos).Int("depth", p.depth)
	if p.pos < len(p.tokens) {
		ev = ev.Stringer("token", p.tokens[p.pos])
	}
	ev.Msg("parse")
	p.depth++
	return func() { p.depth-- }
}

func (p *Parser) parseExp() *Node {
	defer p.trace(KindExp)()
	start := p.mark()

	child := p.parseAddExp()
	if child == nil {
		p.restore(start)
		return nil
	}
	n := newNode(KindExp)
	n.add(child)
	n.Value = child.Value
	return n
}

func (p *Parser) parseAddExp() *Node {
	defer p.trace(KindAddExp)()
	start := p.mark()

	first := p.parseMulExp()
	if first == nil {
		p.restore(start)
		return nil
	}
	n := newNode(KindAddExp)
	n.add(first)
	n.Value = first.Value

	for p.at(TokenPlus, TokenMinus) {
		op := p.advance()
		rhs := p.parseMulExp()
		if rhs == nil {
			p.restore(start)
			return nil
		}
		n.add(newTerminal(op))
		n.add(rhs)
		if op.Type == TokenPlus {
			n.Value += rhs.Value
		} else {
			n.Value -= rhs.Value
		}
	}
	return n
}

func (p *Parser) parseMulExp() *Node {
	defer p.trace(KindMulExp)()
	start := p.mark()

	first := p.parseUnaryExp()
	if first == nil {
		p.restore(start)
		return nil
	}
	n := newNode(KindMulExp)
	n.add(first)
	n.Value = first.Value

	for p.at(TokenStar, TokenSlash) {
		op := p.advance()
		rhs := p.parseUnaryExp()
		if rhs == nil {
			p.restore(start)
			return nil
		}
		n.add(newTerminal(op))
		n.add(rhs)
		switch {
		case op.Type == TokenStar:
			n.Value *= rhs.Value
		case rhs.Value == 0:
			if p.err == nil {
				p.err = types.NewZeroDivisionError()
			}
		default:
			n.Value /= rhs.Value
		}
	}
	return n
}

func (p *Parser) parseUnaryExp() *Node {
	defer p.trace(KindUnaryExp)()
	if p.limit != nil {
		return nil
	}
	p.nesting++
	defer func() { p.nesting-- }()
	if p.nesting > MaxNestingDepth {
		p.limit = types.NewNestingLimitError(MaxNestingDepth)
		return nil
	}

	start := p.mark()
	n := newNode(KindUnaryExp)

	if primary := p.parsePrimaryExp(); primary != nil {
		n.add(primary)
		n.Value = primary.Value
		return n
	}

	op := p.parseUnaryOp()
	if op == nil {
		p.restore(start)
		return nil
	}
	operand := p.parseUnaryExp()
	if operand == nil {
		p.restore(start)
		return nil
	}
	n.add(op)
	n.add(operand)
	n.Value = operand.Value
	if op.Children[0].Text == "-" {
		n.Value = -operand.Value
	}
	return n
}

func (p *Parser) parsePrimaryExp() *Node {
	defer p.trace(KindPrimaryExp)()
	start := p.mark()
	n := newNode(KindPrimaryExp)

	if num := p.parseNumber(); num != nil {
		n.add(num)
		n.Value = num.Value
		return n
	}

	if !p.at(TokenLParen) {
		p.restore(start)
		return nil
	}
	lparen := p.advance()

	inner := p.parseExp()
	if inner == nil {
		p.restore(start)
		return nil
	}
	if !p.at(TokenRParen) {
		p.restore(start)
		return nil
	}
	rparen := p.advance()

	n.add(newTerminal(lparen))
	n.add(inner)
	n.add(newTerminal(rparen))
	n.Value = inner.Value
	return n
}

func (p *Parser) parseUnaryOp() *Node {
	defer p.trace(KindUnaryOp)()
	if !p.at(TokenPlus, TokenMinus) {
		return nil
	}
	n := newNode(KindUnaryOp)
	n.add(newTerminal(p.advance()))
	return n
}

func (p *Parser) parseNumber() *Node {
	defer p.trace(KindNumber)()
	if !p.at(TokenIntLiteral) {
		return nil
	}
	lit := newTerminal(p.advance())
	lit.Value = DecodeLiteral(lit.Text)

	n := newNode(KindNumber)
	n.add(lit)
	n.Value = lit.Value
	return n
}
