package cmd

import (
	"fmt"

	"cookplane/pkg/api"

	"github.com/spf13/cobra"
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Manage body doubling rooms",
}

var roomCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a body doubling room",
	Long: `Create a room and join it as its first participant. The room gets a
shareable code like PASTA-2026 that others use to join.

Example:
  cookctl room create --name "Sunday prep" --capacity 6 --public
  cookctl room create --name "Close friends" --capacity 4 --password hunter2`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		capacity, _ := flags.GetInt("capacity")
		public, _ := flags.GetBool("public")
		password, _ := flags.GetString("password")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}

		req := api.CreateRoomRequest{
			Name:            name,
			MaxParticipants: capacity,
			IsPublic:        public,
		}
		if password != "" {
			req.Password = &password
		}

		result, err := client.CreateRoom(cmd.Context(), req)
		if err != nil {
			printClientError(cmd, err)
			return
		}

		cmd.Printf("✓ Room created!\nID: %s\nCode: %s%s%s\n", result.ID, colorBold, result.Code, colorReset)
		cmd.Printf("Share the code so others can join: cookctl room join %s\n", result.Code)
	},
}

var roomJoinCmd = &cobra.Command{
	Use:   "join [code]",
	Short: "Join a room by its code",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		password, _ := flags.GetString("password")
		sessionID, _ := flags.GetString("session")
		recipeName, _ := flags.GetString("recipe-name")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		req := api.JoinRoomRequest{Code: args[0]}
		if password != "" {
			req.Password = &password
		}
		if sessionID != "" {
			req.SessionID = &sessionID
		}
		if recipeName != "" {
			req.RecipeName = &recipeName
		}

		result, err := client.JoinRoom(cmd.Context(), req)
		if err != nil {
			printClientError(cmd, err)
			return
		}

		cmd.Printf("✓ Joined room %s\n", result.RoomID)
	},
}

var roomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List public rooms open for joining",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		rooms, err := client.ListRooms(cmd.Context())
		if err != nil {
			printClientError(cmd, err)
			return
		}

		if len(rooms) == 0 {
			cmd.Println("No public rooms right now")
			return
		}
		for _, r := range rooms {
			lock := ""
			if r.HasPassword {
				lock = "  🔒"
			}
			cmd.Printf("%s  %s  up to %d cooks%s\n", r.Code, r.Name, r.MaxParticipants, lock)
		}
	},
}

var roomStatusCmd = &cobra.Command{
	Use:   "status [room_id]",
	Short: "Get details of a room",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		r, err := client.GetRoom(cmd.Context(), args[0])
		if err != nil {
			printClientError(cmd, err)
			return
		}

		cmd.Printf("%s%s%s\n", colorBold, r.Name, colorReset)
		cmd.Println("──────────────────────────────")
		cmd.Printf("%sID:%s        %s\n", colorDim, colorReset, r.ID)
		cmd.Printf("%sCode:%s      %s\n", colorDim, colorReset, r.Code)
		cmd.Printf("%sStatus:%s    %s\n", colorDim, colorReset, r.Status)
		cmd.Printf("%sCapacity:%s  %d\n", colorDim, colorReset, r.MaxParticipants)
		cmd.Printf("%sPublic:%s    %t\n", colorDim, colorReset, r.IsPublic)
		cmd.Printf("%sPassword:%s  %t\n", colorDim, colorReset, r.HasPassword)
		cmd.Printf("%sCreated:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(&r.CreatedAt))
	},
}

var roomParticipantsCmd = &cobra.Command{
	Use:   "participants [room_id]",
	Short: "List who is cooking in a room",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		participants, err := client.ListParticipants(cmd.Context(), args[0])
		if err != nil {
			printClientError(cmd, err)
			return
		}

		if len(participants) == 0 {
			cmd.Println("Nobody here yet")
			return
		}
		for _, p := range participants {
			mark := colorGreen + "●" + colorReset
			if !p.IsActive {
				mark = colorDim + "○" + colorReset
			}
			line := fmt.Sprintf("%s %s", mark, p.UserID)
			if p.RecipeName != nil {
				line += fmt.Sprintf("  cooking %q", *p.RecipeName)
			}
			if p.CurrentStep != nil {
				line += fmt.Sprintf("  (%s)", *p.CurrentStep)
			}
			cmd.Println(line)
		}
	},
}

var roomActivityCmd = &cobra.Command{
	Use:   "activity [room_id]",
	Short: "Share what you are up to with the room",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		step, _ := flags.GetString("step")
		energy, _ := flags.GetInt("energy")

		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		req := api.UpdateActivityRequest{}
		if step != "" {
			req.CurrentStep = &step
		}
		if flags.Changed("energy") {
			req.EnergyLevel = &energy
		}

		path := fmt.Sprintf("/rooms/%s/activity", args[0])
		if err := client.UpdateActivity(cmd.Context(), args[0], req); err != nil {
			if queueOnTransportFailure(cmd, err, "update", "room", args[0], "PUT", path, req) {
				return
			}
			printClientError(cmd, err)
			return
		}

		cmd.Println("✓ Activity updated")
	},
}

var roomLeaveCmd = &cobra.Command{
	Use:   "leave [room_id]",
	Short: "Leave a room",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if err := client.LeaveRoom(cmd.Context(), args[0]); err != nil {
			printClientError(cmd, err)
			return
		}
		cmd.Println("✓ Left the room")
	},
}

var roomEndCmd = &cobra.Command{
	Use:   "end [room_id]",
	Short: "End a room you created",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		if err := client.EndRoom(cmd.Context(), args[0]); err != nil {
			printClientError(cmd, err)
			return
		}
		cmd.Println("✓ Room ended")
	},
}

func init() {
	createFlags := roomCreateCmd.Flags()
	createFlags.StringP("name", "n", "", "Room name (required)")
	createFlags.IntP("capacity", "c", 8, "Maximum number of participants")
	createFlags.Bool("public", false, "List the room publicly")
	createFlags.StringP("password", "p", "", "Require a password to join")

	joinFlags := roomJoinCmd.Flags()
	joinFlags.StringP("password", "p", "", "Room password, if it has one")
	joinFlags.StringP("session", "s", "", "Cooking session to bring along")
	joinFlags.String("recipe-name", "", "Recipe name shown to other participants")

	roomActivityCmd.Flags().String("step", "", "What you are working on")
	roomActivityCmd.Flags().IntP("energy", "e", 0, "Current energy level, 1 to 5")

	roomCmd.AddCommand(roomCreateCmd)
	roomCmd.AddCommand(roomJoinCmd)
	roomCmd.AddCommand(roomListCmd)
	roomCmd.AddCommand(roomStatusCmd)
	roomCmd.AddCommand(roomParticipantsCmd)
	roomCmd.AddCommand(roomActivityCmd)
	roomCmd.AddCommand(roomLeaveCmd)
	roomCmd.AddCommand(roomEndCmd)

	rootCmd.AddCommand(roomCmd)
}
