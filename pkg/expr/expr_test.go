package expr

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/intcalc/pkg/types"
)

func tokenize(input string) []Token {
	return NewLexer(zerolog.Nop()).Tokenize(input)
}

func parse(t *testing.T, input string) (*Node, *Parser) {
	t.Helper()
	p := NewParser(tokenize(input), zerolog.Nop())
	return p.GetTree(), p
}

func TestArithmeticExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"-5+3", -2},
		{"0x10+1", 17},
		{"1 + 2", 3},
		{"10-2-3", 5},     // left to right
		{"100/10/5", 2},   // left to right
		{"7/2", 3},        // truncating division
		{"-7/2", -3},      // unary binds tighter
		{"2*-3", -6},      // unary after binary operator
		{"--5", 5},        // nested unary
		{"1--2", 3},       // binary then unary minus
		{"-(2+3)", -5},    // unary on parenthesized expression
		{"((4))", 4},      // nested parentheses
		{"2*(3+4)*5", 70}, // mixed
		{"0b101*017", 75}, // binary times octal
		// 0XFF is octal and stops at X
		{"0xff-0XFF", 255},
		{"12", 12},
		{"0", 0},
		{"1+.2", 3}, // '.' dropped by the lexer
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root, p := parse(t, tt.input)
			if root == nil {
				t.Fatalf("no tree for %q", tt.input)
			}
			if err := p.Err(); err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if root.Value != tt.want {
				t.Errorf("got %d, want %d", root.Value, tt.want)
			}
			if root.Kind != KindExp {
				t.Errorf("root kind = %s, want Exp", root.Kind)
			}
		})
	}
}

func TestMalformedExpressions(t *testing.T) {
	tests := []string{
		"1+",
		"*",
		"()",
		"(1+2",
		"2*(3",
		"1*/2",
		"-",
		"",
		"   ",
		"(1/0", // the division is inside a discarded alternative
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			root, p := parse(t, input)
			if root != nil {
				t.Fatalf("expected no tree, got value %d", root.Value)
			}
			if p.Pos() != 0 {
				t.Errorf("cursor = %d after failed parse, want 0", p.Pos())
			}
			if p.Err() != nil {
				t.Errorf("unexpected semantic error after failed parse: %v", p.Err())
			}
		})
	}
}

func TestParseExpression(t *testing.T) {
	root, err := ParseExpression("1+2*3")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if root.Value != 7 {
		t.Errorf("got %d, want 7", root.Value)
	}

	_, err = ParseExpression("1+")
	ce, ok := types.AsCalcError(err)
	if !ok || !ce.HasTag(types.TagSyntaxError) {
		t.Errorf("expected SyntaxError, got %v", err)
	}

	_, err = ParseExpression("8/(2-2)")
	ce, ok = types.AsCalcError(err)
	if !ok || !ce.HasTag(types.TagZeroDivisionError) {
		t.Errorf("expected ZeroDivisionError, got %v", err)
	}
}

func TestTrailingTokensAreLeftUnconsumed(t *testing.T) {
	root, p := parse(t, "1)")
	if root == nil {
		t.Fatal("expected a tree")
	}
	if root.Value != 1 {
		t.Errorf("got %d, want 1", root.Value)
	}
	if p.Remaining() != 1 {
		t.Errorf("remaining = %d, want 1", p.Remaining())
	}
}

func TestGetTreeEmpty(t *testing.T) {
	p := NewParser(nil, zerolog.Nop())
	if p.GetTree() != nil {
		t.Error("expected nil tree for empty token sequence")
	}
}

func TestTreeShape(t *testing.T) {
	root, _ := parse(t, "1+2*3")
	want := strings.Join([]string{
		"Exp = 7",
		"  AddExp = 7",
		"    MulExp = 1",
		"      UnaryExp = 1",
		"        PrimaryExp = 1",
		"          Number = 1",
		`            Terminal "1"`,
		`    Terminal "+"`,
		"    MulExp = 6",
		"      UnaryExp = 2",
		"        PrimaryExp = 2",
		"          Number = 2",
		`            Terminal "2"`,
		`      Terminal "*"`,
		"      UnaryExp = 3",
		"        PrimaryExp = 3",
		"          Number = 3",
		`            Terminal "3"`,
	}, "\n") + "\n"
	if got := root.Dump(); got != want {
		t.Errorf("dump mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if root.Count() != 18 {
		t.Errorf("count = %d, want 18", root.Count())
	}
}

func TestParentLinks(t *testing.T) {
	root, _ := parse(t, "(1)")
	if root.Parent != nil {
		t.Error("root has a parent")
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if c.Parent != n {
				t.Errorf("%s child %s has wrong parent", n.Kind, c.Kind)
			}
			walk(c)
		}
	}
	walk(root)
}

func TestRollbackRestoresCursor(t *testing.T) {
	rules := map[string]func(p *Parser) *Node{
		"Exp":        (*Parser).parseExp,
		"AddExp":     (*Parser).parseAddExp,
		"MulExp":     (*Parser).parseMulExp,
		"UnaryExp":   (*Parser).parseUnaryExp,
		"PrimaryExp": (*Parser).parsePrimaryExp,
		"UnaryOp":    (*Parser).parseUnaryOp,
		"Number":     (*Parser).parseNumber,
	}
	inputs := []string{"1+", "(1+2", "-", "*3", ")", "(1/0", "2*(3", "--", "1+2*"}

	for name, rule := range rules {
		for _, input := range inputs {
			tokens := tokenize(input)
			for start := 0; start <= len(tokens); start++ {
				p := NewParser(tokens, zerolog.Nop())
				p.pos = start
				if n := rule(p); n == nil && p.pos != start {
					t.Errorf("%s on %q from %d: cursor moved to %d after failure", name, input, start, p.pos)
				}
			}
		}
	}
}

func TestEvaluateMatchesFoldedValue(t *testing.T) {
	inputs := []string{"1+2*3", "(1+2)*3", "-5+3", "0x10+1", "100/10/5", "--5", "2*-(3-10)/7"}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			root, _ := parse(t, input)
			got, err := Evaluate(root)
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != root.Value {
				t.Errorf("Evaluate = %d, folded = %d", got, root.Value)
			}
		})
	}
}

func TestEvaluateZeroDivision(t *testing.T) {
	root, p := parse(t, "5/0")
	if root == nil {
		t.Fatal("expected a tree")
	}
	if _, ok := types.AsCalcError(p.Err()); !ok {
		t.Fatalf("expected CalcError, got %v", p.Err())
	}
	_, err := Evaluate(root)
	ce, ok := types.AsCalcError(err)
	if !ok || !ce.HasTag(types.TagZeroDivisionError) {
		t.Errorf("expected ZeroDivisionError, got %v", err)
	}
}

func TestTokenDumpRoundTrip(t *testing.T) {
	inputs := []string{"1+2*3", "(1+2)*3", "-5+3", "0x10+1", "2*(0b11-017)/-3"}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tokens := tokenize(input)
			back, err := ParseTokenDump(FormatTokens(tokens))
			if err != nil {
				t.Fatalf("parse dump: %v", err)
			}

			orig := NewParser(tokens, zerolog.Nop()).GetTree()
			again := NewParser(back, zerolog.Nop()).GetTree()
			if orig == nil || again == nil {
				t.Fatal("expected trees")
			}
			if orig.Dump() != again.Dump() {
				t.Errorf("trees differ:\n%s\n%s", orig.Dump(), again.Dump())
			}

			var sb strings.Builder
			for _, tok := range tokens {
				sb.WriteString(tok.Value)
			}
			relexed := tokenize(sb.String())
			if FormatTokens(relexed) != FormatTokens(tokens) {
				t.Errorf("re-lexing %q gave\n%s", sb.String(), FormatTokens(relexed))
			}
		})
	}
}

func TestNestingLimit(t *testing.T) {
	ok := strings.Repeat("(", MaxNestingDepth-1) + "7" + strings.Repeat(")", MaxNestingDepth-1)
	root, err := ParseExpression(ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Value != 7 {
		t.Fatalf("got %d, want 7", root.Value)
	}

	for _, input := range []string{
		strings.Repeat("(", 100_000) + "1",
		strings.Repeat("(", MaxNestingDepth+1) + "1" + strings.Repeat(")", MaxNestingDepth+1),
		strings.Repeat("-", MaxNestingDepth+1) + "1",
	} {
		_, err := ParseExpression(input)
		ce, ok := types.AsCalcError(err)
		if !ok || !ce.HasTag(types.TagSyntaxError) {
			t.Fatalf("expected SyntaxError, got %v", err)
		}
		if !strings.Contains(ce.Message, "nested deeper") {
			t.Errorf("unexpected message %q", ce.Message)
		}
	}

	// GetTree clears the limit from a previous run.
	p := NewParser(tokenize(strings.Repeat("-", MaxNestingDepth+1)+"1"), zerolog.Nop())
	if p.GetTree() != nil || p.Err() == nil {
		t.Fatal("expected nesting failure")
	}
	p.tokens = tokenize("1+1")
	if root := p.GetTree(); root == nil || p.Err() != nil {
		t.Fatalf("expected clean parse, got %v", p.Err())
	}
}
