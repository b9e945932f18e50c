// Package walker enumerates analyzable files under a workspace folder
// and classifies them into test and source buckets.
package walker

import (
	"fmt"

	"github.com/moby/patternmatcher"
)

// Classifier decides whether a file is a test file based on
// ignore-style glob patterns matched against folder-relative paths.
type Classifier struct {
	pm *patternmatcher.PatternMatcher
}

// NewClassifier compiles the given patterns.
func NewClassifier(patterns []string) (*Classifier, error) {
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid test file patterns: %w", err)
	}
	return &Classifier{pm: pm}, nil
}

// IsTest reports whether relPath (slash-separated, relative to the
// folder root) matches a test file pattern.
func (c *Classifier) IsTest(relPath string) bool {
	matched, err := c.pm.MatchesOrParentMatches(relPath)
	if err != nil {
		return false
	}
	return matched
}
