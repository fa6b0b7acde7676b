package analytics

import (
	"sort"
	"time"

	"fitchallenge/internal/models"
)

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -offset)
}

// WeekRange returns [Monday 00:00, next Monday 00:00) for the week containing t.
func WeekRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := WeekStart(t, loc)
	return start, start.AddDate(0, 0, 7)
}

// WeekLabel renders a week as "dd/MM - dd/MM/yyyy".
func WeekLabel(start time.Time) string {
	end := start.AddDate(0, 0, 6)
	return start.Format("02/01") + " - " + end.Format("02/01/2006")
}

// MonthRange returns [first day 00:00, first day of next month 00:00) in loc.
func MonthRange(month time.Time, loc *time.Location) (time.Time, time.Time) {
	month = month.In(loc)
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Leaderboard ranks competitors by score, highest first. Ties keep name order.
func Leaderboard(competitors []models.Competitor) []models.RankedCompetitor {
	ranked := make([]models.RankedCompetitor, 0, len(competitors))
	for _, c := range competitors {
		ranked = append(ranked, models.RankedCompetitor{ID: c.ID, Name: c.Name, Score: c.Score})
	}
	sortRanked(ranked)
	return ranked
}

// WeeklyLeaderboard sums the points of proofs per competitor. The caller
// passes only proofs of the week. Every competitor is listed.
func WeeklyLeaderboard(competitors []models.Competitor, proofs []models.Proof) []models.RankedCompetitor {
	scores := make(map[string]int, len(competitors))
	for _, p := range proofs {
		if p.Competitor == nil {
			continue
		}
		scores[p.Competitor.ID] += p.Points
	}

	ranked := make([]models.RankedCompetitor, 0, len(competitors))
	for _, c := range competitors {
		ranked = append(ranked, models.RankedCompetitor{ID: c.ID, Name: c.Name, Score: scores[c.ID]})
	}
	sortRanked(ranked)
	return ranked
}

// HallOfFame counts weekly wins. A week is won by the competitor(s) with the
// highest strictly positive total; ties all win. Proofs at or after before
// (normally the start of the current week) are ignored.
func HallOfFame(competitors []models.Competitor, proofs []models.Proof, before time.Time, loc *time.Location) []models.HallOfFameEntry {
	weekly := make(map[time.Time]map[string]int)
	for _, p := range proofs {
		if p.Competitor == nil || !p.CreatedAt.Before(before) {
			continue
		}
		week := WeekStart(p.CreatedAt, loc)
		if weekly[week] == nil {
			weekly[week] = make(map[string]int)
		}
		weekly[week][p.Competitor.ID] += p.Points
	}

	wins := make(map[string]int)
	for _, totals := range weekly {
		best := 0
		for _, score := range totals {
			if score > best {
				best = score
			}
		}
		if best <= 0 {
			continue
		}
		for id, score := range totals {
			if score == best {
				wins[id]++
			}
		}
	}

	entries := make([]models.HallOfFameEntry, 0, len(competitors))
	for _, c := range competitors {
		entries = append(entries, models.HallOfFameEntry{ID: c.ID, Name: c.Name, Wins: wins[c.ID]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func sortRanked(ranked []models.RankedCompetitor) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
}
