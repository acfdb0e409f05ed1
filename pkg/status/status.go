// Package status maps the many raw status and phase spellings found in
// quest journals and state files onto a small closed vocabulary.
package status

import "strings"

// Status is the canonical quest status.
type Status string

const (
	Finished   Status = "finished"
	InProgress Status = "in_progress"
	Blocked    Status = "blocked"
	Abandoned  Status = "abandoned"
	Unknown    Status = "unknown"
)

// All lists the canonical statuses in display order.
var All = []Status{InProgress, Blocked, Abandoned, Finished, Unknown}

// Label returns the human-readable form of s.
func (s Status) Label() string {
	switch s {
	case Finished:
		return "Finished"
	case InProgress:
		return "In Progress"
	case Blocked:
		return "Blocked"
	case Abandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s ends a quest's lifecycle.
func (s Status) IsTerminal() bool {
	return s == Finished || s == Abandoned
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, c := range All {
		if s == c {
			return true
		}
	}
	return false
}

// clean lowercases raw, drops backticks and collapses -, _ and runs of
// whitespace into single spaces.
func clean(raw string) string {
	raw = strings.ToLower(raw)
	raw = strings.NewReplacer("`", "", "-", " ", "_", " ").Replace(raw)
	return strings.Join(strings.Fields(raw), " ")
}

// Normalize maps a single raw status or phase value to a canonical Status.
// Abandonment is checked first so that values such as
// "Abandoned (plan approved, never built)" are never misread.
func Normalize(raw string) Status {
	v := clean(raw)
	switch {
	case v == "":
		return Unknown
	case strings.HasPrefix(v, "abandon"):
		return Abandoned
	case strings.HasPrefix(v, "complet"), strings.HasPrefix(v, "finish"):
		return Finished
	case strings.Contains(v, "block"):
		return Blocked
	case v == "in progress":
		return InProgress
	}
	return Unknown
}

// Resolve returns the first candidate that normalizes to something other
// than Unknown. When none does, hasCompletion decides between Finished and
// Unknown.
func Resolve(hasCompletion bool, candidates ...string) Status {
	for _, c := range candidates {
		if s := Normalize(c); s != Unknown {
			return s
		}
	}
	if hasCompletion {
		return Finished
	}
	return Unknown
}

// JournalLabel reduces a journal's raw status to the two labels journals
// carry: "Abandoned" or "Completed".
func JournalLabel(raw string) string {
	if Normalize(raw) == Abandoned {
		return "Abandoned"
	}
	return "Completed"
}
