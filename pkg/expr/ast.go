package expr

import (
	"fmt"
	"strings"
)

// NodeKind identifies the grammar rule a node was produced by.
type NodeKind int

const (
	KindNone NodeKind = iota
	KindTerminal
	KindExp
	KindNumber
	KindPrimaryExp
	KindUnaryExp
	KindUnaryOp
	KindMulExp
	KindAddExp
)

func (k NodeKind) String() string {
	switch k {
	case KindTerminal:
		return "Terminal"
	case KindExp:
		return "Exp"
	case KindNumber:
		return "Number"
	case KindPrimaryExp:
		return "PrimaryExp"
	case KindUnaryExp:
		return "UnaryExp"
	case KindUnaryOp:
		return "UnaryOp"
	case KindMulExp:
		return "MulExp"
	case KindAddExp:
		return "AddExp"
	default:
		return "None"
	}
}

// Node is a syntax tree node. A node owns its children; Parent is kept for
// inspection only and is never used to walk the tree.
type Node struct {
	Kind     NodeKind
	Value    int64  // evaluated value of the subtree
	Text     string // source text, Terminal nodes only
	Parent   *Node
	Children []*Node
}

func newNode(kind NodeKind) *Node {
	return &Node{Kind: kind}
}

func newTerminal(tok Token) *Node {
	return &Node{Kind: KindTerminal, Text: tok.Value}
}

func (n *Node) add(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Dump renders the subtree one node per line, indented by depth.
func (n *Node) Dump() string {
	var sb strings.Builder
	n.dump(&sb, 0)
	return sb.String()
}

func (n *Node) dump(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	if n.Kind == KindTerminal {
		fmt.Fprintf(sb, "%s %q\n", n.Kind, n.Text)
	} else {
		fmt.Fprintf(sb, "%s = %d\n", n.Kind, n.Value)
	}
	for _, c := range n.Children {
		c.dump(sb, depth+1)
	}
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}
