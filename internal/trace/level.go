package trace

import (
	"fmt"
	"strings"
)

// Level controls how deep into the pipeline spans are recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // the command and each requested output
	LevelDetail       // plus steps: archive edits, subprocesses, resolution
	LevelDebug        // plus archive members
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel reads a --trace-level value.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if s == name {
			return Level(l), nil // #nosec G115 -- index of a four-element table
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// Covers reports whether spans of scope are recorded at this level.
func (l Level) Covers(scope Scope) bool {
	if l == LevelOff {
		return false
	}
	// LevelPhase пишет ScopeDriver и ScopeOutput, каждый следующий уровень
	// добавляет по одному scope
	return int(scope) <= int(l)+1
}
