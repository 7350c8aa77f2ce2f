package services

import (
	"context"
	"fmt"

	tperrors "github.com/conneroisu/autotemplar/internal/errors"
)

// IndexEntry is one tag and the templates that declare it.
type IndexEntry struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Templates []string `json:"templates" yaml:"templates"`
}

// IndexIssue is a template that contributed no tags.
type IndexIssue struct {
	Path     string `json:"path" yaml:"path"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// IndexReport describes a freshly rebuilt tag index.
type IndexReport struct {
	Folder    string       `json:"folder" yaml:"folder"`
	Templates int          `json:"templates" yaml:"templates"`
	Entries   []IndexEntry `json:"entries" yaml:"entries"`
	Issues    []IndexIssue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// IndexReport rebuilds the tag index from the current template folder and
// reports its contents, tags sorted alphabetically.
func (a *App) IndexReport(ctx context.Context) (*IndexReport, error) {
	folder := a.Controller.TemplatesFolder()
	if err := a.Index.Rebuild(ctx, folder); err != nil {
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}

	report := &IndexReport{
		Folder:    folder,
		Templates: a.Index.Templates(),
		Entries:   []IndexEntry{},
	}
	for _, tag := range a.Index.Tags() {
		report.Entries = append(report.Entries, IndexEntry{
			Tag:       tag,
			Templates: a.Index.Lookup(tag),
		})
	}
	for _, issue := range a.Index.Issues() {
		report.Issues = append(report.Issues, newIndexIssue(issue))
	}
	return report, nil
}

func newIndexIssue(issue tperrors.Issue) IndexIssue {
	return IndexIssue{
		Path:     issue.Path,
		Severity: issue.Severity.String(),
		Message:  issue.Message,
	}
}
