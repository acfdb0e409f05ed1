package tui

import (
	"strings"

	"github.com/KjellKod/quest/pkg/dashboard"
)

// QuestItem is one row of the quest list: either a group header or a quest.
type QuestItem struct {
	ID              string // card anchor, unique across the dataset
	Name            string
	Group           string
	Card            *dashboard.Card
	IsSectionHeader bool // true for "ACTIVE", "FINISHED", "ABANDONED" headers
}

type section struct {
	name  string
	group string
	cards []dashboard.Card
}

// BuildItems flattens the display groups into list rows, active quests
// first. Empty groups get no header.
func BuildItems(g dashboard.Groups) []QuestItem {
	sections := []section{
		{"ACTIVE", dashboard.GroupActive, g.Active},
		{"FINISHED", dashboard.GroupFinished, g.Finished},
		{"ABANDONED", dashboard.GroupAbandoned, g.Abandoned},
	}

	var result []QuestItem
	for _, s := range sections {
		if len(s.cards) == 0 {
			continue
		}
		result = append(result, QuestItem{
			ID:              "__header_" + s.group,
			Name:            s.name,
			Group:           s.group,
			IsSectionHeader: true,
		})
		for i := range s.cards {
			c := &s.cards[i]
			result = append(result, QuestItem{
				ID:    c.Anchor,
				Name:  displayName(c),
				Group: s.group,
				Card:  c,
			})
		}
	}
	return result
}

func displayName(c *dashboard.Card) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Slug != "":
		return c.Slug
	default:
		return c.QuestID
	}
}

// MatchItem reports whether query occurs, case-insensitively, in the quest's
// name, id, slug or elevator pitch.
func MatchItem(item QuestItem, query string) bool {
	if item.IsSectionHeader || item.Card == nil {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{item.Name, item.Card.QuestID, item.Card.Slug, item.Card.ElevatorPitch} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// FilterItems keeps the quests in matchIDs and the headers of groups that
// still have at least one quest.
func FilterItems(items []QuestItem, matchIDs map[string]bool) []QuestItem {
	keep := make(map[string]bool)
	for _, item := range items {
		if !item.IsSectionHeader && matchIDs[item.ID] {
			keep[item.Group] = true
		}
	}

	var result []QuestItem
	for _, item := range items {
		if item.IsSectionHeader {
			if keep[item.Group] {
				result = append(result, item)
			}
			continue
		}
		if matchIDs[item.ID] {
			result = append(result, item)
		}
	}
	return result
}
