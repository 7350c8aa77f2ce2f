// Package internal contains the implementation packages of autotemplar.
//
// # Package Organization
//
//   - frontmatter: Locating and decoding the leading YAML block of a note
//   - vault: Documents and the stores that read them (disk and memory)
//   - watcher: File system monitoring with debouncing
//   - tagindex: Tag to template mapping built from the template folder
//   - editor: Immutable view state, transactions and block decorations
//   - editor/syntax: Block-level syntax tree with byte offsets
//   - render: Decoration provider that renders matched templates into a block
//   - workspace: The set of open views and the active one
//   - dispatch: Recomputes the matches of the active note on every trigger
//   - settings: The persisted template folder setting
//   - preview: Browser surface, settings page and live block updates
//   - services: Composition root used by the CLI commands
//   - config, logging, errors, version: Ambient support
//
// # Data Flow
//
// A change event or a note being opened reaches the dispatch controller.
// The controller reads the active note's tags, looks each one up in the tag
// index and publishes the resulting match set to the note's view. The view's
// render pipeline turns a changed match set into a single block decoration
// placed after the front-matter; mounting it loads the matched templates and
// renders them in the background.
package internal
