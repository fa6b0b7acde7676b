package analytics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fitchallenge/internal/models"
)

var jan10 = time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

func proofAt(at time.Time, competitorID, name, event string, points int) models.Proof {
	return models.Proof{
		ID:           competitorID + "-" + event + "-" + at.Format(time.RFC3339Nano),
		CreatedAt:    at,
		CompetitorID: competitorID,
		Competitor:   &models.CompetitorRef{ID: competitorID, Name: name},
		EventType:    event,
		Points:       points,
	}
}

// perfectSet returns the proofs of one perfect day for a competitor.
func perfectSet(day time.Time, competitorID, name string) []models.Proof {
	var proofs []models.Proof
	for i := 0; i < 5; i++ {
		proofs = append(proofs, proofAt(day.Add(time.Duration(i)*time.Minute), competitorID, name, models.EventPerfectMeal, 1))
	}
	proofs = append(proofs,
		proofAt(day.Add(10*time.Minute), competitorID, name, models.EventWeightTraining, 10),
		proofAt(day.Add(20*time.Minute), competitorID, name, models.EventCardio, 10),
		proofAt(day.Add(30*time.Minute), competitorID, name, models.EventWaterGoal, 5),
	)
	return proofs
}

func TestPerfectDays_Empty(t *testing.T) {
	cal := PerfectDays(nil, PerfectDayCriteria, time.UTC)
	if len(cal) != 0 {
		t.Errorf("empty window should give empty calendar, got %v", cal)
	}
}

func TestPerfectDays_Perfect(t *testing.T) {
	cal := PerfectDays(perfectSet(jan10, "c1", "Ana"), PerfectDayCriteria, time.UTC)

	want := Calendar{"2024-01-10": {"A"}}
	if diff := cmp.Diff(want, cal); diff != "" {
		t.Errorf("PerfectDays() mismatch (-want +got):\n%s", diff)
	}
}

func TestPerfectDays_FourMealsNotPerfect(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	proofs = proofs[1:] // drop one perfect meal

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if len(cal) != 0 {
		t.Errorf("4 perfect meals should not be perfect, got %v", cal)
	}
}

func TestPerfectDays_NegativeVeto(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	proofs = append(proofs, proofAt(jan10.Add(time.Hour), "c1", "Ana", models.EventCheatMeal, -5))

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if len(cal) != 0 {
		t.Errorf("negative proof should veto the day, got %v", cal)
	}
}

func TestPerfectDays_NegativeOtherCompetitorDoesNotVeto(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	proofs = append(proofs, proofAt(jan10, "c2", "Bia", models.EventCheatMeal, -5))

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if diff := cmp.Diff(Calendar{"2024-01-10": {"A"}}, cal); diff != "" {
		t.Errorf("PerfectDays() mismatch (-want +got):\n%s", diff)
	}
}

func TestPerfectDays_TwoCompetitorsSameDay(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	proofs = append(proofs, perfectSet(jan10.Add(time.Hour), "c2", "bia")...)
	// Extra qualifying proofs must not duplicate initials.
	proofs = append(proofs, proofAt(jan10.Add(2*time.Hour), "c1", "Ana", models.EventPerfectMeal, 1))

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	want := Calendar{"2024-01-10": {"A", "B"}}
	if diff := cmp.Diff(want, cal); diff != "" {
		t.Errorf("PerfectDays() mismatch (-want +got):\n%s", diff)
	}
}

func TestPerfectDays_SameInitialListedOnce(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	proofs = append(proofs, perfectSet(jan10, "c2", "Alice")...)

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if diff := cmp.Diff(Calendar{"2024-01-10": {"A"}}, cal); diff != "" {
		t.Errorf("PerfectDays() mismatch (-want +got):\n%s", diff)
	}
}

func TestPerfectDays_MissingCompetitorIgnored(t *testing.T) {
	base := perfectSet(jan10, "c1", "Ana")[1:]

	orphans := []models.Proof{
		{CreatedAt: jan10, EventType: models.EventPerfectMeal, Points: 1},
		{CreatedAt: jan10, EventType: models.EventCheatMeal, Points: -5, Competitor: &models.CompetitorRef{}},
	}
	with := PerfectDays(append(append([]models.Proof{}, base...), orphans...), PerfectDayCriteria, time.UTC)
	without := PerfectDays(base, PerfectDayCriteria, time.UTC)

	if diff := cmp.Diff(without, with); diff != "" {
		t.Errorf("orphan proofs changed the result (-without +with):\n%s", diff)
	}
}

func TestPerfectDays_SplitAcrossDays(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	// Move the cardio to the next day.
	for i := range proofs {
		if proofs[i].EventType == models.EventCardio {
			proofs[i].CreatedAt = jan10.AddDate(0, 0, 1)
		}
	}

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if len(cal) != 0 {
		t.Errorf("criteria spread over two days should not be perfect, got %v", cal)
	}
}

func TestPerfectDays_UsesDisplayZone(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on the 11th is 22:00 on the 10th in BRT.
	late := time.Date(2024, time.January, 11, 1, 0, 0, 0, time.UTC)
	proofs := perfectSet(late.Add(-time.Hour), "c1", "Ana")

	cal := PerfectDays(proofs, PerfectDayCriteria, saoPaulo)
	if diff := cmp.Diff(Calendar{"2024-01-10": {"A"}}, cal); diff != "" {
		t.Errorf("PerfectDays() mismatch (-want +got):\n%s", diff)
	}
}

func TestPerfectDays_Idempotent(t *testing.T) {
	proofs := perfectSet(jan10, "c1", "Ana")
	proofs = append(proofs, perfectSet(jan10.AddDate(0, 0, 3), "c2", "Bia")...)

	first := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	second := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestPerfectDays_AnaScenario(t *testing.T) {
	proofs := perfectSet(jan10, "ana", "Ana")

	cal := PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if got := cal["2024-01-10"]; len(got) != 1 || got[0] != "A" {
		t.Fatalf("day 10 = %v, want [A]", got)
	}

	proofs = append(proofs, proofAt(jan10.Add(3*time.Hour), "ana", "Ana", models.EventNoTrainingDay, -5))
	cal = PerfectDays(proofs, PerfectDayCriteria, time.UTC)
	if _, ok := cal["2024-01-10"]; ok {
		t.Errorf("day 10 should lose its tag after a negative proof, got %v", cal)
	}
}

func TestInitial(t *testing.T) {
	cases := map[string]string{
		"Ana":    "A",
		"bia":    "B",
		" carla": "C",
		"élida":  "É",
		"":       "?",
	}
	for name, want := range cases {
		if got := Initial(name); got != want {
			t.Errorf("Initial(%q) = %q, want %q", name, got, want)
		}
	}
}
