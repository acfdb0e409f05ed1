package status

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type phaseInfo struct {
	label string
	class string
	rank  int
}

var phases = map[string]phaseInfo{
	"complete":              {"Complete", "phase-done", 0},
	"done":                  {"Complete", "phase-done", 0},
	"reviewing":             {"Under Review", "phase-review", 1},
	"code_review":           {"Under Review", "phase-review", 1},
	"presentation_complete": {"Under Review", "phase-review", 1},
	"fixing":                {"Fixing", "phase-fix", 2},
	"building":              {"Building", "phase-build", 3},
	"implementing":          {"Building", "phase-build", 3},
	"presenting":            {"Under Review", "phase-review", 4},
	"plan":                  {"Plan", "phase-plan", 5},
	"pending":               {"Plan", "phase-plan", 5},
}

const unrankedPhase = 6

func phaseKey(phase string) string {
	p := strings.ToLower(strings.TrimSpace(phase))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(p)
}

// PhaseLabel returns the display label and CSS class for a raw phase.
// Unrecognized phases are title-cased with the generic plan class.
func PhaseLabel(phase string) (label, class string) {
	if info, ok := phases[phaseKey(phase)]; ok {
		return info.label, info.class
	}
	return DisplayLabel(phase), "phase-plan"
}

// PhaseRank orders phases for the active bucket; quests closest to done
// come first.
func PhaseRank(phase string) int {
	if info, ok := phases[phaseKey(phase)]; ok {
		return info.rank
	}
	return unrankedPhase
}

// DisplayLabel turns a snake_case value into space separated words with
// each word capitalized, e.g. "code_review" -> "Code Review".
func DisplayLabel(raw string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(raw))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
