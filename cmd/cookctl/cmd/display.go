package cmd

import (
	"fmt"
	"time"

	"cookplane/pkg/api"

	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func printSession(cmd *cobra.Command, s *api.SessionResponse) {
	cmd.Printf("%s %sCooking Session%s\n", statusIcon(s.Status), colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, s.ID)
	cmd.Printf("%sRecipe:%s      %s\n", colorDim, colorReset, s.RecipeID)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeSessionStatus(s.Status))
	cmd.Printf("%sStep:%s        %d of %d\n", colorDim, colorReset, s.CurrentStepIndex, s.TotalSteps)
	if s.TotalPauseDurationSeconds > 0 {
		cmd.Printf("%sPaused for:%s  %s\n", colorDim, colorReset,
			formatDuration(time.Duration(s.TotalPauseDurationSeconds)*time.Second))
	}
	if s.RoomID != nil {
		cmd.Printf("%sRoom:%s        %s\n", colorDim, colorReset, *s.RoomID)
	}
	cmd.Printf("%sStarted:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&s.StartedAt))
	if s.CompletedAt != nil {
		duration := s.CompletedAt.Sub(s.StartedAt)
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(s.CompletedAt),
			colorCyan, formatDuration(duration), colorReset)
	}
}

func printTimer(cmd *cobra.Command, t *api.TimerResponse) {
	cmd.Printf("%s %s%s%s\n", statusIcon(t.Status), colorBold, t.Name, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, t.ID)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeTimerStatus(t.Status))
	cmd.Printf("%sRemaining:%s   %s of %s\n", colorDim, colorReset,
		formatDuration(time.Duration(t.RemainingSeconds)*time.Second),
		formatDuration(time.Duration(t.DurationSeconds)*time.Second))
	if t.StepIndex != nil {
		cmd.Printf("%sStep:%s        %d\n", colorDim, colorReset, *t.StepIndex)
	}
	cmd.Printf("%sCreated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&t.CreatedAt))
	if t.CompletedAt != nil {
		cmd.Printf("%sFinished:%s    %s\n", colorDim, colorReset, formatTimeWithRelative(t.CompletedAt))
	}
}

func statusIcon(status string) string {
	switch status {
	case "active", "running":
		return colorYellow + "⏳" + colorReset
	case "paused":
		return colorCyan + "◯" + colorReset
	case "completed":
		return colorGreen + "✓" + colorReset
	case "abandoned", "cancelled":
		return colorRed + "✗" + colorReset
	default:
		return "•"
	}
}

func colorizeSessionStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "active":
		return icon + " " + colorYellow + status + colorReset
	case "paused":
		return icon + " " + colorCyan + status + colorReset
	case "completed":
		return icon + " " + colorGreen + status + colorReset
	case "abandoned":
		return icon + " " + colorRed + status + colorReset
	default:
		return status
	}
}

func colorizeTimerStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "running":
		return icon + " " + colorYellow + status + colorReset
	case "paused":
		return icon + " " + colorCyan + status + colorReset
	case "completed":
		return icon + " " + colorGreen + status + colorReset
	case "cancelled":
		return icon + " " + colorRed + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
