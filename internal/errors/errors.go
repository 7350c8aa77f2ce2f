// Package errors collects non-fatal problems found while indexing a vault.
//
// Nothing in the template pipeline is allowed to fail the host: a template
// with broken front-matter simply contributes no tags. Those problems are
// still worth showing to the user, so they are gathered here and reported
// by the CLI instead of being returned as errors.
package errors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Issue describes a problem with a single document.
type Issue struct {
	Path      string
	Message   string
	Severity  Severity
	Timestamp time.Time
}

// Severity represents the severity of an issue
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (i *Issue) Error() string {
	return fmt.Sprintf("%s: %s: %s", i.Path, i.Severity, i.Message)
}

// IssueCollector collects issues from concurrent workers.
type IssueCollector struct {
	issues []Issue
	mutex  sync.RWMutex
}

// NewIssueCollector creates a new issue collector
func NewIssueCollector() *IssueCollector {
	return &IssueCollector{
		issues: make([]Issue, 0),
	}
}

// Add records an issue.
func (c *IssueCollector) Add(issue Issue) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if issue.Timestamp.IsZero() {
		issue.Timestamp = time.Now()
	}
	c.issues = append(c.issues, issue)
}

// Warn is shorthand for adding a warning.
func (c *IssueCollector) Warn(path, format string, args ...interface{}) {
	c.Add(Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Issues returns a copy of all issues ordered by path.
func (c *IssueCollector) Issues() []Issue {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]Issue, len(c.issues))
	copy(result, c.issues)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}

// HasIssues returns true if anything was collected
func (c *IssueCollector) HasIssues() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.issues) > 0
}

// Clear clears all issues
func (c *IssueCollector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.issues = c.issues[:0]
}

// ByPath returns issues for a specific document
func (c *IssueCollector) ByPath(path string) []Issue {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var out []Issue
	for _, issue := range c.issues {
		if issue.Path == path {
			out = append(out, issue)
		}
	}
	return out
}
