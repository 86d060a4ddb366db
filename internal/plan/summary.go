package plan

// DailyTargets are the intake and burn goals from the latest health metric.
// Display reference only.
type DailyTargets struct {
	CalorieIntakeGoal int `json:"calorie_intake_goal"`
	CalorieBurnGoal   int `json:"calorie_burn_goal"`
}

// DefaultTargets is shown until the health service reports real goals.
var DefaultTargets = DailyTargets{CalorieIntakeGoal: 2000, CalorieBurnGoal: 500}

// DaySummary is the calorie summary card for one day of the plan.
type DaySummary struct {
	Day         DayKey `json:"day"`
	Intake      int    `json:"intake"`
	Burn        int    `json:"burn"`
	NetCalories int    `json:"net_calories"`
	IntakeGoal  int    `json:"intake_goal"`
	BurnGoal    int    `json:"burn_goal"`
	Entries     int    `json:"entries"`
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Totals sums intake and burn. Calories are stored positive for both kinds;
// the kind decides direction (meals add, workouts subtract).
func Totals(entries []ScheduleEntry) (intake, burn int) {
	for _, e := range entries {
		if e.Kind == KindWorkout {
			burn += abs(e.Calories)
		} else {
			intake += abs(e.Calories)
		}
	}
	return intake, burn
}

// NetCalories is intake minus burn.
func NetCalories(entries []ScheduleEntry) int {
	in, out := Totals(entries)
	return in - out
}

// Summarize builds the summary for one day against the targets.
func (p WeeklyPlan) Summarize(day DayKey, targets DailyTargets) DaySummary {
	entries := p[day]
	in, out := Totals(entries)
	return DaySummary{
		Day:         day,
		Intake:      in,
		Burn:        out,
		NetCalories: in - out,
		IntakeGoal:  targets.CalorieIntakeGoal,
		BurnGoal:    targets.CalorieBurnGoal,
		Entries:     len(entries),
	}
}
