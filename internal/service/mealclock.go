package service

import "time"

// Meal names recognized by the scheduling engine.
const (
	MealBreakfast  = "breakfast"
	MealMidMorning = "mid_morning"
	MealLunch      = "lunch"
	MealDinner     = "dinner"
	MealSnack      = "snack"
	MealBedtime    = "bedtime"
)

// mealOrder is the fixed processing order for questionnaire evaluation.
var mealOrder = []string{MealBreakfast, MealMidMorning, MealLunch, MealDinner, MealSnack}

// canonical clock times per meal
var mealTimes = map[string]struct{ hour, minute int }{
	MealBreakfast:  {8, 0},
	MealMidMorning: {10, 30},
	MealLunch:      {13, 0},
	MealDinner:     {19, 0},
	MealBedtime:    {22, 0},
	MealSnack:      {16, 0},
}

// MealOrder returns the fixed meal processing order.
func MealOrder() []string {
	out := make([]string, len(mealOrder))
	copy(out, mealOrder)
	return out
}

// CurrentMealZone maps a wall-clock time to its meal zone. Intervals are
// half-open on the 24h clock: [6,10) breakfast, [10,12) mid_morning,
// [12,18) lunch, [18,22) dinner, anything else snack.
func CurrentMealZone(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour >= 6 && hour < 10:
		return MealBreakfast
	case hour >= 10 && hour < 12:
		return MealMidMorning
	case hour >= 12 && hour < 18:
		return MealLunch
	case hour >= 18 && hour < 22:
		return MealDinner
	default:
		return MealSnack
	}
}

// ScheduledTime combines a meal's canonical clock time with the date of now.
// Unrecognized meals fall back to 12:00 rather than erroring.
func ScheduledTime(meal string, now time.Time) time.Time {
	t, ok := mealTimes[meal]
	if !ok {
		t = struct{ hour, minute int }{12, 0}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.hour, t.minute, 0, 0, now.Location())
}

// MealIndex returns the position of meal in the fixed processing order.
// Unrecognized meals sort after all known meals.
func MealIndex(meal string) int {
	for i, m := range mealOrder {
		if m == meal {
			return i
		}
	}
	return len(mealOrder)
}
