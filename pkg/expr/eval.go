package expr

import (
	"fmt"

	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// Evaluate recomputes the value of a parsed tree from its structure,
// ignoring the values stored in the nodes.
func Evaluate(node *Node) (int64, error) {
	if node == nil {
		return 0, types.NewMalformedExpressionError()
	}

	switch node.Kind {
	case KindExp:
		return evalOnly(node)
	case KindAddExp, KindMulExp:
		return evalChain(node)
	case KindUnaryExp:
		return evalUnary(node)
	case KindPrimaryExp:
		switch len(node.Children) {
		case 1:
			return Evaluate(node.Children[0])
		case 3:
			return Evaluate(node.Children[1])
		}
		return 0, fmt.Errorf("PrimaryExp with %d children", len(node.Children))
	case KindNumber:
		if len(node.Children) != 1 || node.Children[0].Kind != KindTerminal {
			return 0, fmt.Errorf("Number without literal")
		}
		return DecodeLiteral(node.Children[0].Text), nil
	default:
		return 0, fmt.Errorf("unsupported node kind: %s", node.Kind)
	}
}

func evalOnly(node *Node) (int64, error) {
	if len(node.Children) != 1 {
		return 0, fmt.Errorf("%s with %d children", node.Kind, len(node.Children))
	}
	return Evaluate(node.Children[0])
}

// evalChain folds operand (op operand)* left to right.
func evalChain(node *Node) (int64, error) {
	if len(node.Children)%2 == 0 {
		return 0, fmt.Errorf("%s with %d children", node.Kind, len(node.Children))
	}
	acc, err := Evaluate(node.Children[0])
	if err != nil {
		return 0, err
	}
	for i := 1; i+1 < len(node.Children); i += 2 {
		rhs, err := Evaluate(node.Children[i+1])
		if err != nil {
			return 0, err
		}
		switch node.Children[i].Text {
		case "+":
			acc += rhs
		case "-":
			acc -= rhs
		case "*":
			acc *= rhs
		case "/":
			if rhs == 0 {
				return 0, types.NewZeroDivisionError()
			}
			acc /= rhs
		default:
			return 0, fmt.Errorf("unsupported binary operator: %q", node.Children[i].Text)
		}
	}
	return acc, nil
}

func evalUnary(node *Node) (int64, error) {
	switch len(node.Children) {
	case 1:
		return Evaluate(node.Children[0])
	case 2:
		op := node.Children[0]
		if op.Kind != KindUnaryOp || len(op.Children) != 1 {
			return 0, fmt.Errorf("UnaryExp without UnaryOp")
		}
		v, err := Evaluate(node.Children[1])
		if err != nil {
			return 0, err
		}
		if op.Children[0].Text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return 0, fmt.Errorf("UnaryExp with %d children", len(node.Children))
}
