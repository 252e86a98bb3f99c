package cmd

import (
	"fmt"
	"time"

	"cookplane/pkg/api"

	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage countdown timers",
}

var timerStartCmd = &cobra.Command{
	Use:   "start [session_id]",
	Short: "Start a countdown timer for a session",
	Long: `Start a countdown timer attached to a cooking session. Several timers
can run at once; each rings exactly once when it reaches zero.

Example:
  cookctl timer start <session-id> --name "Simmer" --duration 600
  cookctl timer start <session-id> --name "Rest the dough" --duration 1800 --step 4`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		duration, _ := flags.GetInt("duration")
		step, _ := flags.GetInt("step")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}
		if duration <= 0 {
			cmd.Println("Error: --duration must be a positive number of seconds")
			return
		}

		req := api.CreateTimerRequest{
			Name:            name,
			DurationSeconds: duration,
		}
		if flags.Changed("step") {
			req.StepIndex = &step
		}

		result, err := client.CreateTimer(cmd.Context(), args[0], req)
		if err != nil {
			printClientError(cmd, err)
			return
		}

		cmd.Printf("✓ Timer started!\nID: %s\nName: %s\nDuration: %s\n",
			result.ID, result.Name, formatDuration(time.Duration(result.DurationSeconds)*time.Second))
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status [timer_id]",
	Short: "Get status of a timer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		result, err := client.GetTimer(cmd.Context(), args[0])
		if err != nil {
			printClientError(cmd, err)
			return
		}
		printTimer(cmd, result)
	},
}

var timerListCmd = &cobra.Command{
	Use:   "list [session_id]",
	Short: "List timers for a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		timers, err := client.ListTimers(cmd.Context(), args[0])
		if err != nil {
			printClientError(cmd, err)
			return
		}

		if len(timers) == 0 {
			cmd.Println("No timers for this session")
			return
		}
		for _, t := range timers {
			cmd.Printf("%s  %s  %s  %s left\n",
				t.ID, colorizeTimerStatus(t.Status), t.Name,
				formatDuration(time.Duration(t.RemainingSeconds)*time.Second))
		}
	},
}

func newTimerTransitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s [timer_id]", action),
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client, ok := clientFromConfig(cmd)
			if !ok {
				return
			}

			path := fmt.Sprintf("/timers/%s/%s", args[0], action)
			result, err := client.TransitionTimer(cmd.Context(), args[0], action)
			if err != nil {
				if queueOnTransportFailure(cmd, err, action, "timer", args[0], "POST", path, nil) {
					return
				}
				printClientError(cmd, err)
				return
			}
			cmd.Printf("✓ Timer %q is now %s\n", result.Name, result.Status)
		},
	}
}

func init() {
	flags := timerStartCmd.Flags()
	flags.StringP("name", "n", "", "Timer label (required)")
	flags.IntP("duration", "d", 0, "Duration in seconds (required)")
	flags.Int("step", 0, "Step index the timer belongs to")

	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStatusCmd)
	timerCmd.AddCommand(timerListCmd)
	timerCmd.AddCommand(newTimerTransitionCmd("pause", "Pause a running timer"))
	timerCmd.AddCommand(newTimerTransitionCmd("resume", "Resume a paused timer"))
	timerCmd.AddCommand(newTimerTransitionCmd("complete", "Mark a timer done early"))
	timerCmd.AddCommand(newTimerTransitionCmd("cancel", "Cancel a timer"))

	rootCmd.AddCommand(timerCmd)
}
