package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/masteryee/nest-events/internal/detect"
)

// Variables to hold flag values
var (
	cameraID   string
	outputFile string
)

// Parent Command
var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Inspect cameras",
	Long:  `Show the cameras on the account and their most recent event.`,
}

// List Command
var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cameras",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		token := requireToken(cmd.Context(), cfg)

		cameras, err := newAPI(cfg).GetCameras(cmd.Context(), token)
		if err != nil {
			fmt.Printf("Error fetching cameras: %v\n", err)
			os.Exit(1)
		}

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cameras); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}
		// -------------------

		loc, _ := cfg.Location()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tONLINE\tSTREAMING\tLAST EVENT\tPERSON\tZONES")
		fmt.Fprintln(w, "--\t----\t------\t---------\t----------\t------\t-----")

		for _, cam := range cameras {
			last, person, zones := "-", "-", "-"
			if ev := cam.LastEvent; ev != nil {
				last = detect.FormatLocal(ev.StartTime, loc)
				person = yesNo(ev.HasPerson)
				if len(ev.ActivityZoneIDs) > 0 {
					zones = strings.Join(ev.ActivityZoneIDs, ",")
				}
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				cam.DeviceID,
				cam.DisplayName(),
				yesNo(cam.IsOnline),
				yesNo(cam.IsStreaming),
				last,
				person,
				zones,
			)
		}
		w.Flush()
	},
}

// Snapshot Command
var camerasSnapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Short:   "Save the current JPEG still of a camera",
	Example: `  nest-events cameras snapshot --id "device_id" --output "front.jpg"`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		token := requireToken(cmd.Context(), cfg)

		fmt.Printf("Requesting snapshot for camera %s ...\n", cameraID)

		imgData, err := newAPI(cfg).GetSnapshot(cmd.Context(), token, cameraID)
		if err != nil {
			fmt.Printf("Error getting snapshot: %v\n", err)
			os.Exit(1)
		}

		if err := os.WriteFile(outputFile, imgData, 0644); err != nil {
			fmt.Printf("Error writing file: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Snapshot saved to %s\n", outputFile)
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	// Register Parent
	rootCmd.AddCommand(camerasCmd)

	// Register Subcommands
	camerasCmd.AddCommand(camerasListCmd)
	camerasCmd.AddCommand(camerasSnapshotCmd)

	// Flags for Snapshot
	camerasSnapshotCmd.Flags().StringVar(&cameraID, "id", "", "Device ID of the camera")
	camerasSnapshotCmd.Flags().StringVar(&outputFile, "output", "snapshot.jpg", "Output filename")
	_ = camerasSnapshotCmd.MarkFlagRequired("id")
}
