//go:build property
// +build property

package tagindex

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/autotemplar/internal/vault"
)

// storeFrom builds a template folder where template i declares tagSets[i].
func storeFrom(tagSets [][]string) *vault.MemStore {
	files := make(map[string]string, len(tagSets))
	for i, tags := range tagSets {
		files[fmt.Sprintf("templates/t%02d.md", i)] = "---\ntags: [" + strings.Join(tags, ", ") + "]\n---\nbody"
	}
	return vault.NewMemStore(files)
}

func TestIndexProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	tagGen := gen.SliceOfN(4, gen.OneConstOf("a", "b", "c", "d", "e"))

	// Property: no tag ever lists the same template twice
	properties.Property("per-tag dedup", prop.ForAll(
		func(tagSets [][]string) bool {
			ix := New(storeFrom(tagSets), nil)
			if err := ix.Rebuild(context.Background(), "templates"); err != nil {
				return false
			}
			for _, templates := range ix.Snapshot() {
				seen := make(map[string]bool)
				for _, template := range templates {
					if seen[template] {
						return false
					}
					seen[template] = true
				}
			}
			return true
		},
		gen.SliceOfN(6, tagGen),
	))

	// Property: rebuilding an unchanged folder yields the same mapping
	properties.Property("idempotent rebuild", prop.ForAll(
		func(tagSets [][]string) bool {
			ix := New(storeFrom(tagSets), nil)
			if err := ix.Rebuild(context.Background(), "templates"); err != nil {
				return false
			}
			first := ix.Snapshot()
			if err := ix.Rebuild(context.Background(), "templates"); err != nil {
				return false
			}
			return reflect.DeepEqual(first, ix.Snapshot())
		},
		gen.SliceOfN(6, tagGen),
	))

	// Property: every declared (template, tag) occurrence is indexed
	properties.Property("complete", prop.ForAll(
		func(tagSets [][]string) bool {
			ix := New(storeFrom(tagSets), nil)
			if err := ix.Rebuild(context.Background(), "templates"); err != nil {
				return false
			}
			for i, tags := range tagSets {
				id := fmt.Sprintf("t%02d", i)
				for _, tag := range tags {
					if !contains(ix.Lookup(tag), id) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(6, tagGen),
	))

	properties.TestingRun(t)
}
