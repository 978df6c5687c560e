package parser

import "github.com/conneroisu/wxjsx/internal/lexer"

// Node is one element of the document tree. Children is non-nil exactly when
// Token is an open tag; leaves (text, self-closing tags) have nil Children.
type Node struct {
	Token    lexer.Token
	Children []*Node
}

// HasChildren reports whether the node is an element that can hold children.
func (n *Node) HasChildren() bool {
	return n.Token.Kind == lexer.KindOpenTag
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}
