package cmd

import (
	"fmt"

	"cookplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage cooking sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new cooking session",
	Long: `Start a cooking session for a recipe. The recipe is broken down into
steps at the requested granularity; level 1 gives the tiniest steps and
level 5 the broadest.

Example:
  cookctl session start --recipe "recipe-42" --name "Weeknight Curry" --granularity 4
  cookctl session start --recipe "recipe-7" --granularity 2 --energy 3 --room PASTA-2026`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		recipeID, _ := flags.GetString("recipe")
		recipeName, _ := flags.GetString("name")
		granularity, _ := flags.GetInt("granularity")
		energy, _ := flags.GetInt("energy")
		roomCode, _ := flags.GetString("room")
		roomPassword, _ := flags.GetString("room-password")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if recipeID == "" {
			cmd.Println("Error: --recipe is required")
			return
		}

		req := api.StartSessionRequest{
			RecipeID:         recipeID,
			RecipeName:       recipeName,
			GranularityLevel: granularity,
		}
		if flags.Changed("energy") {
			req.EnergyLevel = &energy
		}
		if roomCode != "" {
			req.JoinRoomCode = &roomCode
		}
		if roomPassword != "" {
			req.RoomPassword = &roomPassword
		}

		result, err := client.StartSession(cmd.Context(), req)
		if err != nil {
			printClientError(cmd, err)
			return
		}

		cmd.Printf("✓ Session started!\nID: %s\nSteps: %d\n", result.ID, result.TotalSteps)
		if result.RoomID != nil {
			cmd.Printf("Room: %s\n", *result.RoomID)
		}
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status [session_id]",
	Short: "Get status of a cooking session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		result, err := client.GetSession(cmd.Context(), args[0])
		if err != nil {
			printClientError(cmd, err)
			return
		}
		printSession(cmd, result)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your cooking sessions",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		sessions, err := client.ListSessions(cmd.Context())
		if err != nil {
			printClientError(cmd, err)
			return
		}

		if len(sessions) == 0 {
			cmd.Println("No sessions yet")
			return
		}
		for _, s := range sessions {
			cmd.Printf("%s  %s  step %d/%d  %s\n",
				s.ID, colorizeSessionStatus(s.Status), s.CurrentStepIndex, s.TotalSteps,
				s.StartedAt.Format("Mon, 02 Jan 15:04"))
		}
	},
}

var sessionProgressCmd = &cobra.Command{
	Use:   "progress [session_id]",
	Short: "Move a session to a different step",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		index, _ := cmd.Flags().GetInt("index")
		notes, _ := cmd.Flags().GetString("notes")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}
		if !cmd.Flags().Changed("index") {
			cmd.Println("Error: --index is required")
			return
		}

		req := api.UpdateProgressRequest{CurrentStepIndex: index}
		if notes != "" {
			req.Notes = &notes
		}

		path := fmt.Sprintf("/sessions/%s/progress", args[0])
		result, err := client.UpdateProgress(cmd.Context(), args[0], req)
		if err != nil {
			if queueOnTransportFailure(cmd, err, "update", "session", args[0], "PATCH", path, req) {
				return
			}
			printClientError(cmd, err)
			return
		}

		cmd.Printf("✓ Now on step %d of %d\n", result.CurrentStepIndex, result.TotalSteps)
	},
}

var sessionStepCmd = &cobra.Command{
	Use:   "step [session_id]",
	Short: "Record the outcome of one step",
	Long: `Record a step outcome. Recording the same step twice replaces the
earlier record, so this is safe to retry.

Example:
  cookctl session step <session-id> --index 2 --text "Dice the onion" --took 95
  cookctl session step <session-id> --index 3 --text "Toast the spices" --skip`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		index, _ := flags.GetInt("index")
		text, _ := flags.GetString("text")
		took, _ := flags.GetInt("took")
		skipped, _ := flags.GetBool("skip")
		rating, _ := flags.GetInt("difficulty")
		notes, _ := flags.GetString("notes")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}
		if !flags.Changed("index") {
			cmd.Println("Error: --index is required")
			return
		}
		if text == "" {
			cmd.Println("Error: --text is required")
			return
		}

		req := api.CompleteStepRequest{
			StepText: text,
			Skipped:  skipped,
		}
		if flags.Changed("took") {
			req.TimeTakenSeconds = &took
		}
		if flags.Changed("difficulty") {
			req.DifficultyRating = &rating
		}
		if notes != "" {
			req.Notes = &notes
		}

		path := fmt.Sprintf("/sessions/%s/steps/%d", args[0], index)
		if err := client.CompleteStep(cmd.Context(), args[0], index, req); err != nil {
			if queueOnTransportFailure(cmd, err, "upsert", "step", args[0], "PUT", path, req) {
				return
			}
			printClientError(cmd, err)
			return
		}

		if skipped {
			cmd.Printf("✓ Step %d skipped\n", index)
		} else {
			cmd.Printf("✓ Step %d recorded\n", index)
		}
	},
}

var sessionStepsCmd = &cobra.Command{
	Use:   "steps [session_id]",
	Short: "List recorded step outcomes for a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		steps, err := client.ListSteps(cmd.Context(), args[0])
		if err != nil {
			printClientError(cmd, err)
			return
		}

		if len(steps) == 0 {
			cmd.Println("No steps recorded yet")
			return
		}
		for _, s := range steps {
			mark := "✓"
			if s.Skipped {
				mark = "⏭"
			}
			line := fmt.Sprintf("%s %2d  %s", mark, s.StepIndex, s.StepText)
			if s.TimeTakenSeconds != nil {
				line += fmt.Sprintf("  (%ds)", *s.TimeTakenSeconds)
			}
			cmd.Println(line)
		}
	},
}

func newSessionTransitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [session_id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client, ok := clientFromConfig(cmd)
			if !ok {
				return
			}

			path := fmt.Sprintf("/sessions/%s/%s", args[0], action)
			result, err := client.TransitionSession(cmd.Context(), args[0], action)
			if err != nil {
				if queueOnTransportFailure(cmd, err, action, "session", args[0], "POST", path, nil) {
					return
				}
				printClientError(cmd, err)
				return
			}
			cmd.Printf("✓ Session is now %s\n", result.Status)
		},
	}
}

// clientFromConfig builds a CookClient from viper config, printing a
// hint and returning false when the token is missing.
func clientFromConfig(cmd *cobra.Command) (*CookClient, bool) {
	url := viper.GetString("url")
	token := viper.GetString("token")
	if token == "" {
		cmd.Println("API token not found. Please set it using the --token flag or the COOKPLANE_TOKEN environment variable")
		return nil, false
	}
	return NewCookClient(url, token), true
}

func printClientError(cmd *cobra.Command, err error) {
	if apiErr, ok := err.(*APIError); ok {
		cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
		return
	}
	cmd.Printf("Error: %v\n", err)
}

func init() {
	flags := sessionStartCmd.Flags()
	flags.StringP("recipe", "r", "", "Recipe identifier (required)")
	flags.StringP("name", "n", "", "Recipe display name")
	flags.IntP("granularity", "g", 3, "Step granularity, 1 (tiniest steps) to 5 (broadest)")
	flags.IntP("energy", "e", 0, "Current energy level, 1 to 5")
	flags.String("room", "", "Room code to join while cooking")
	flags.String("room-password", "", "Password for the room, if it has one")

	sessionProgressCmd.Flags().IntP("index", "i", 0, "Step index to move to (required)")
	sessionProgressCmd.Flags().String("notes", "", "Notes for this step")

	stepFlags := sessionStepCmd.Flags()
	stepFlags.IntP("index", "i", 0, "Step index (required)")
	stepFlags.String("text", "", "Step instruction text (required)")
	stepFlags.Int("took", 0, "Seconds the step took")
	stepFlags.Bool("skip", false, "Mark the step skipped instead of done")
	stepFlags.Int("difficulty", 0, "Difficulty rating, 1 to 5")
	stepFlags.String("notes", "", "Notes about the step")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionProgressCmd)
	sessionCmd.AddCommand(sessionStepCmd)
	sessionCmd.AddCommand(sessionStepsCmd)
	sessionCmd.AddCommand(newSessionTransitionCmd("pause", "Pause an active session"))
	sessionCmd.AddCommand(newSessionTransitionCmd("resume", "Resume a paused session"))
	sessionCmd.AddCommand(newSessionTransitionCmd("complete", "Finish a session successfully"))
	sessionCmd.AddCommand(newSessionTransitionCmd("abandon", "Give up on a session"))

	rootCmd.AddCommand(sessionCmd)
}
