// Package syntax gives a coarse block structure of a note: its leading
// front-matter, line by line, followed by the top-level markdown blocks of
// the body with byte offsets into the original text.
package syntax

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/conneroisu/autotemplar/internal/frontmatter"
)

// Kind identifies the type of a node.
type Kind int

const (
	KindDocument Kind = iota
	// KindFrontmatterBlock wraps the whole metadata block.
	KindFrontmatterBlock
	// KindFrontmatter is one line of the metadata block, delimiters included.
	KindFrontmatter
	KindParagraph
	KindHeading
	KindList
	KindCodeBlock
	KindBlockquote
	KindHTMLBlock
	KindTable
	KindOther
)

var kindNames = map[Kind]string{
	KindDocument:         "document",
	KindFrontmatterBlock: "frontmatter-block",
	KindFrontmatter:      "frontmatter",
	KindParagraph:        "paragraph",
	KindHeading:          "heading",
	KindList:             "list",
	KindCodeBlock:        "code-block",
	KindBlockquote:       "blockquote",
	KindHTMLBlock:        "html-block",
	KindTable:            "table",
	KindOther:            "other",
}

// String returns the string representation of the Kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is a range of the document. From is inclusive, To exclusive.
type Node struct {
	Kind     Kind
	From, To int

	parent   *Node
	next     *Node
	children []*Node
}

// Parent returns the enclosing node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// NextSibling returns the following node under the same parent, or nil.
func (n *Node) NextSibling() *Node { return n.next }

// Children returns the direct children in document order.
func (n *Node) Children() []*Node { return n.children }

func (n *Node) append(child *Node) {
	child.parent = n
	if last := len(n.children); last > 0 {
		n.children[last-1].next = child
	}
	n.children = append(n.children, child)
}

// Tree is the parsed structure of one document.
type Tree struct {
	Root   *Node
	Length int
}

// Iterate walks the tree depth first. Returning false from enter skips the
// node's children.
func (t *Tree) Iterate(enter func(n *Node) bool) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if !enter(n) {
			return
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(t.Root)
}

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// Parse builds the tree of doc.
func Parse(doc string) *Tree {
	root := &Node{Kind: KindDocument, From: 0, To: len(doc)}

	bodyStart := 0
	if end, ok := frontmatter.Span(doc); ok {
		root.append(frontmatterNode(doc[:end]))
		bodyStart = end
	}

	body := []byte(doc[bodyStart:])
	document := parser().Parser().Parse(text.NewReader(body))
	for child := document.FirstChild(); child != nil; child = child.NextSibling() {
		from, to, ok := blockSpan(child)
		if !ok {
			continue
		}
		root.append(&Node{Kind: kindOf(child), From: bodyStart + from, To: bodyStart + to})
	}

	return &Tree{Root: root, Length: len(doc)}
}

// frontmatterNode splits the metadata block into one node per line.
func frontmatterNode(block string) *Node {
	n := &Node{Kind: KindFrontmatterBlock, From: 0, To: len(block)}
	offset := 0
	for _, line := range strings.Split(block, "\n") {
		n.append(&Node{Kind: KindFrontmatter, From: offset, To: offset + len(line)})
		offset += len(line) + 1
	}
	return n
}

// blockSpan computes the byte range covered by a block node from its own
// lines and those of its block descendants.
func blockSpan(n ast.Node) (from, to int, ok bool) {
	if n.Type() != ast.TypeBlock {
		return 0, 0, false
	}
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		from = lines.At(0).Start
		to = lines.At(lines.Len() - 1).Stop
		ok = true
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		cf, ct, cok := blockSpan(child)
		if !cok {
			continue
		}
		if !ok || cf < from {
			from = cf
		}
		if !ok || ct > to {
			to = ct
		}
		ok = true
	}
	return from, to, ok
}

func kindOf(n ast.Node) Kind {
	switch n.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		return KindParagraph
	case ast.KindHeading:
		return KindHeading
	case ast.KindList:
		return KindList
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return KindCodeBlock
	case ast.KindBlockquote:
		return KindBlockquote
	case ast.KindHTMLBlock:
		return KindHTMLBlock
	case extast.KindTable:
		return KindTable
	default:
		return KindOther
	}
}
