// Package frontmatter reads the metadata block at the top of a note.
//
// A block starts at the first byte of the document with a line of three
// dashes, holds a YAML mapping, and ends with another line of three dashes.
// Only the "tags" key is interpreted. Every failure mode (no block, broken
// YAML, a tags value of the wrong shape) degrades to "no tags" so callers
// never have to branch on parse errors.
package frontmatter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var blockPattern = regexp.MustCompile(`(?s)\A---\n(.*?)\n---`)

// ErrNoBlock reports content that does not start with a metadata block.
var ErrNoBlock = errors.New("no front-matter block")

// Split separates the leading metadata block from the rest of the content.
// ok is false when the content does not start with a block.
func Split(content string) (block string, body string, ok bool) {
	loc := blockPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", content, false
	}
	return content[loc[2]:loc[3]], content[loc[1]:], true
}

// Span returns the byte offset just past the closing delimiter.
func Span(content string) (end int, ok bool) {
	loc := blockPattern.FindStringIndex(content)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}

type header struct {
	Tags yaml.Node `yaml:"tags"`
}

// Tags returns the tags declared in the metadata block, in declaration order.
func Tags(content string) []string {
	tags, _ := Inspect(content)
	return tags
}

// Inspect is Tags with the reason for an empty result: ErrNoBlock, or a
// YAML decoding error. A block without a usable tags key is not an error.
func Inspect(content string) ([]string, error) {
	block, _, ok := Split(content)
	if !ok {
		return nil, ErrNoBlock
	}
	return parseTags(block)
}

func parseTags(block string) ([]string, error) {
	var h header
	if err := yaml.Unmarshal([]byte(block), &h); err != nil {
		return nil, fmt.Errorf("decoding front-matter: %w", err)
	}

	switch h.Tags.Kind {
	case yaml.SequenceNode:
		tags := make([]string, 0, len(h.Tags.Content))
		for _, item := range h.Tags.Content {
			if tag, ok := scalarTag(item); ok {
				tags = append(tags, tag)
			}
		}
		return tags, nil
	case yaml.ScalarNode:
		if tag, ok := scalarTag(&h.Tags); ok {
			return []string{tag}, nil
		}
	}
	return nil, nil
}

func scalarTag(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", false
	}
	tag := strings.TrimSpace(n.Value)
	return tag, tag != ""
}

// Strip removes the leading metadata block and surrounding whitespace.
func Strip(content string) string {
	return strings.TrimSpace(blockPattern.ReplaceAllLiteralString(content, ""))
}
