package models

type Category string

const (
	CategoryGain = Category("GAIN")
	CategoryLose = Category("LOSE")
)

const (
	EventPerfectMeal    = "perfect_meal"
	EventWeightTraining = "weight_training"
	EventCardio         = "cardio"
	EventWaterGoal      = "water_goal"
	EventNoTrainingDay  = "no_training_day"
	EventCheatMeal      = "cheat_meal"
	EventCrazyCheatMeal = "crazy_cheat_meal"
)

// PointEvent is one entry of the scoring catalogue. Proofs store the Key.
type PointEvent struct {
	Key      string   `json:"value"`
	Label    string   `json:"label"`
	Points   int      `json:"points"`
	Category Category `json:"category"`
}

var PointEvents = map[Category][]PointEvent{
	CategoryGain: {
		{Key: EventPerfectMeal, Label: "Perfect meal", Points: 1, Category: CategoryGain},
		{Key: EventWeightTraining, Label: "Weight training session", Points: 10, Category: CategoryGain},
		{Key: EventCardio, Label: "Cardio >= 20 min", Points: 10, Category: CategoryGain},
		{Key: EventWaterGoal, Label: "Daily water goal", Points: 5, Category: CategoryGain},
	},
	CategoryLose: {
		{Key: EventNoTrainingDay, Label: "Day without training", Points: -5, Category: CategoryLose},
		{Key: EventCheatMeal, Label: "Off-diet meal", Points: -5, Category: CategoryLose},
		{Key: EventCrazyCheatMeal, Label: "Crazy cheat meal", Points: -10, Category: CategoryLose},
	},
}

// LookupEvent finds an event by key within a category.
func LookupEvent(category Category, key string) (PointEvent, bool) {
	for _, e := range PointEvents[category] {
		if e.Key == key {
			return e, true
		}
	}
	return PointEvent{}, false
}

// EventByKey searches every category.
func EventByKey(key string) (PointEvent, bool) {
	for _, cat := range []Category{CategoryGain, CategoryLose} {
		if e, ok := LookupEvent(cat, key); ok {
			return e, true
		}
	}
	return PointEvent{}, false
}
