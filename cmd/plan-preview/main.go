// CLI tool to sign in to the health service and print the current saved plan
// day by day, with calorie totals against the user's targets.
// Usage: go run ./cmd/plan-preview (from the repo root)
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/config"
	"lg/health-planner-api/internal/plan"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')
	password = strings.TrimSpace(password)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	api := backend.NewClient(cfg.HealthAPIURL)
	s, err := api.Login(ctx, email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing in: %v\n", err)
		os.Exit(1)
	}

	raw, err := api.CurrentPlan(ctx, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading plan: %v\n", err)
		os.Exit(1)
	}
	p, _, meta, found, err := plan.FromSaved(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading plan: %v\n", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("\nNo saved plan yet.")
		return
	}

	targets, err := api.Targets(ctx, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default targets: %v\n", err)
	}

	fmt.Printf("\nPlan #%d (%s to %s)\n", meta.PlanID, meta.StartDate, meta.EndDate)
	printPlan(os.Stdout, p, targets, time.Now())
}

// printPlan writes one block per day: the summary line, then its entries.
func printPlan(w io.Writer, p plan.WeeklyPlan, targets plan.DailyTargets, now time.Time) {
	for _, d := range plan.Days {
		sum := p.Summarize(d, targets)
		fmt.Fprintf(w, "\n%s %s  in %d / %d  burn %d / %d  net %d\n",
			d, plan.DateForDay(d, now).Format("2006-01-02"),
			sum.Intake, sum.IntakeGoal, sum.Burn, sum.BurnGoal, sum.NetCalories)
		for _, e := range p[d] {
			done := " "
			if e.IsCompleted {
				done = "x"
			}
			fmt.Fprintf(w, "  [%s] %s %s %-24s %5d kcal %s\n", done, e.Time, e.Icon, e.Title, e.Calories, e.Duration)
		}
	}
}
