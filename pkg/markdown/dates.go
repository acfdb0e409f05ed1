package markdown

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	isoDateRE       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	monthDateRE     = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
	dateSuffixRE    = regexp.MustCompile(`_\d{4}-\d{2}-\d{2}$`)
	questIDSuffixRE = regexp.MustCompile(`_\d{4}-\d{2}-\d{2}__\d{4}$`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// date builds a UTC calendar date, rejecting values time.Date would
// silently normalize (Feb 30 and friends).
func date(year int, month time.Month, day int) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// ParseDate finds a calendar date in s. It accepts an ISO YYYY-MM-DD
// anywhere in the string, or "<Month> D, YYYY" / "<Month> D YYYY" with a
// full or three-letter month name.
func ParseDate(s string) (time.Time, bool) {
	if t, ok := ParseISODate(s); ok {
		return t, true
	}
	for _, m := range monthDateRE.FindAllStringSubmatch(s, -1) {
		mo := months[strings.ToLower(m[1])[:3]]
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if t, ok := date(y, mo, d); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseISODate finds the first valid YYYY-MM-DD date embedded in s.
func ParseISODate(s string) (time.Time, bool) {
	for _, m := range isoDateRE.FindAllStringSubmatch(s, -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t, ok := date(y, time.Month(mo), d); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// SlugFromQuestID strips the trailing _YYYY-MM-DD__HHMM suffix from a quest
// id. Ids without the suffix are returned unchanged.
func SlugFromQuestID(questID string) string {
	return questIDSuffixRE.ReplaceAllString(strings.TrimSpace(questID), "")
}

// SlugFromStem strips a trailing _YYYY-MM-DD from a filename stem.
func SlugFromStem(stem string) string {
	return dateSuffixRE.ReplaceAllString(stem, "")
}

// Humanize turns a filename stem into a title: the date suffix is dropped,
// - and _ become spaces and every word is capitalized.
func Humanize(stem string) string {
	stem = SlugFromStem(stem)
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
