package analytics

import (
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"fitchallenge/internal/models"
)

const DayKeyLayout = "2006-01-02"

// Criteria maps an event type to the minimum number of proofs of that type a
// competitor needs in a single day.
type Criteria map[string]int

var PerfectDayCriteria = Criteria{
	models.EventPerfectMeal:    5,
	models.EventWeightTraining: 1,
	models.EventCardio:         1,
	models.EventWaterGoal:      1,
}

// Calendar maps a day key (YYYY-MM-DD) to the distinct initials of the
// competitors that had a perfect day, in first-seen order.
type Calendar map[string][]string

type dayTally struct {
	name     string
	counts   map[string]int
	negative int
}

// PerfectDays classifies every (day, competitor) group found in proofs. Days
// are taken in loc. Proofs without a competitor are ignored.
func PerfectDays(proofs []models.Proof, criteria Criteria, loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}

	type groupKey struct{ day, competitor string }
	groups := make(map[groupKey]*dayTally)
	var order []groupKey

	for _, p := range proofs {
		if p.Competitor == nil || p.Competitor.ID == "" {
			continue
		}
		k := groupKey{day: DayKey(p.CreatedAt, loc), competitor: p.Competitor.ID}
		g, ok := groups[k]
		if !ok {
			g = &dayTally{name: p.Competitor.Name, counts: make(map[string]int)}
			groups[k] = g
			order = append(order, k)
		}
		g.counts[p.EventType]++
		if p.Points < 0 {
			g.negative++
		}
	}

	cal := make(Calendar)
	for _, k := range order {
		g := groups[k]
		if !g.perfect(criteria) {
			continue
		}
		initial := Initial(g.name)
		if !slices.Contains(cal[k.day], initial) {
			cal[k.day] = append(cal[k.day], initial)
		}
	}
	return cal
}

func (g *dayTally) perfect(criteria Criteria) bool {
	if g.negative != 0 {
		return false
	}
	for event, min := range criteria {
		if g.counts[event] < min {
			return false
		}
	}
	return true
}

// DayKey truncates t to a calendar date in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}

// Initial is the upper-cased first character of name, or "?" for a blank name.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
