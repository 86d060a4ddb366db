// Package health computes BMI, BMR, TDEE and daily intake/burn goals from a
// health profile. It is the single source of truth for the goal and activity
// enumerations.
package health

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrIncompleteProfile = errors.New("profile is missing required fields")
	ErrImplausibleAge    = errors.New("date of birth gives an implausible age")
	ErrUnknownActivity   = errors.New("unknown activity level")
	ErrUnknownGoal       = errors.New("unknown goal")
)

// ActivityLevel is stored by the health service as 1..4.
type ActivityLevel int

const (
	Sedentary ActivityLevel = iota + 1
	Light
	Moderate
	Active
)

// activity describes one level: its TDEE multiplier and the daily burn goal
// used when maintaining or gaining weight.
type activity struct {
	ID           string
	Factor       float64
	MaintainBurn int
	GainBurn     int
}

// activityLevels maps each level to its parameters. Also used for input
// validation by the profile preview endpoint.
var activityLevels = map[ActivityLevel]activity{
	Sedentary: {"sedentary", 1.2, 200, 250},
	Light:     {"light", 1.375, 250, 300},
	Moderate:  {"moderate", 1.55, 300, 350},
	Active:    {"active", 1.725, 350, 400},
}

// Goal is stored by the health service as 1..3.
type Goal int

const (
	GoalLose Goal = iota + 1
	GoalMaintain
	GoalGain
)

var goalIDs = map[Goal]string{
	GoalLose:     "lose",
	GoalMaintain: "maintain",
	GoalGain:     "gain",
}

// ParseActivity accepts either the numeric code ("2") or the id ("light").
func ParseActivity(s string) (ActivityLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := activityLevels[ActivityLevel(n)]; ok {
			return ActivityLevel(n), nil
		}
		return 0, ErrUnknownActivity
	}
	for lvl, a := range activityLevels {
		if a.ID == s {
			return lvl, nil
		}
	}
	return 0, ErrUnknownActivity
}

// ParseGoal accepts either the numeric code ("1") or the id ("lose").
func ParseGoal(s string) (Goal, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := goalIDs[Goal(n)]; ok {
			return Goal(n), nil
		}
		return 0, ErrUnknownGoal
	}
	for g, id := range goalIDs {
		if id == s {
			return g, nil
		}
	}
	return 0, ErrUnknownGoal
}

func (a ActivityLevel) String() string { return activityLevels[a].ID }
func (g Goal) String() string          { return goalIDs[g] }

// metricGoalNames are the goal names the health service's add_metric
// endpoint expects.
var metricGoalNames = map[Goal]string{
	GoalLose:     "lose_weight",
	GoalMaintain: "maintain",
	GoalGain:     "gain_muscle",
}

// MetricName is the goal as the health service's metric form names it.
func (g Goal) MetricName() string { return metricGoalNames[g] }

// Profile is the body data a calculation needs.
type Profile struct {
	Sex         string // "male" or anything else (treated as female)
	DateOfBirth time.Time
	HeightCM    float64
	WeightKG    float64
	Activity    ActivityLevel
	Goal        Goal
}

// Result is the output of Compute.
type Result struct {
	BMI         float64 `json:"bmi"`
	BMR         int     `json:"bmr"`
	TDEE        int     `json:"tdee"`
	NetGoal     int     `json:"net_goal"`
	DailyIntake int     `json:"daily_calo"`
	DailyBurn   int     `json:"daily_burn"`
}

// BMI returns weight / height², rounded to two decimals. ok=false when either
// input is missing.
func BMI(weightKG, heightCM float64) (float64, bool) {
	if weightKG <= 0 || heightCM <= 0 {
		return 0, false
	}
	m := heightCM / 100
	return math.Round(weightKG/(m*m)*100) / 100, true
}

// Age returns full years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Before(dob.AddDate(age, 0, 0)) {
		age--
	}
	return age
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(v, high))
}

// Compute derives BMR (Mifflin-St Jeor), TDEE and the intake/burn goals for
// the profile's goal:
//   - lose: deficit is 20% of TDEE clamped to [300, 800], net never below 90%
//     of BMR, 40% of the deficit comes from exercise (at least 200 kcal)
//   - gain: surplus is 15% of TDEE clamped to [250, 500], burn by activity
//   - maintain: net is TDEE, burn by activity
//
// Intake goal = net goal + burn goal.
func Compute(p Profile, now time.Time) (Result, error) {
	if p.Sex == "" || p.DateOfBirth.IsZero() || p.HeightCM <= 0 || p.WeightKG <= 0 {
		return Result{}, ErrIncompleteProfile
	}
	act, ok := activityLevels[p.Activity]
	if !ok {
		return Result{}, ErrUnknownActivity
	}
	if _, ok := goalIDs[p.Goal]; !ok {
		return Result{}, ErrUnknownGoal
	}

	age := Age(p.DateOfBirth, now)
	// Guard against implausible ages (e.g. DOB in the future, or over 130 years ago)
	if age < 0 || age > 130 {
		return Result{}, ErrImplausibleAge
	}

	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(age)
	if strings.EqualFold(p.Sex, "male") {
		bmr += 5
	} else {
		bmr -= 161
	}
	tdee := math.Round(bmr * act.Factor)

	var net float64
	var burn int
	switch p.Goal {
	case GoalLose:
		deficit := clamp(tdee*0.2, 300, 800)
		net = tdee - deficit
		if minNet := bmr * 0.9; net < minNet {
			net = minNet
			deficit = tdee - net
		}
		burn = int(math.Max(200, deficit*0.4))
	case GoalGain:
		net = tdee + clamp(tdee*0.15, 250, 500)
		burn = act.GainBurn
	default:
		net = tdee
		burn = act.MaintainBurn
	}

	bmi, _ := BMI(p.WeightKG, p.HeightCM)
	return Result{
		BMI:         bmi,
		BMR:         int(math.Round(bmr)),
		TDEE:        int(tdee),
		NetGoal:     int(math.Round(net)),
		DailyIntake: int(math.Round(net + float64(burn))),
		DailyBurn:   burn,
	}, nil
}
