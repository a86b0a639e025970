package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/masteryee/nest-events/internal/detect"
)

var notifyDevice string

// Parent Command
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage alert delivery",
	Long:  `Check the configured notifiers (log, NATS subject, webhook).`,
}

// Test Command
var notifyTestCmd = &cobra.Command{
	Use:     "test",
	Short:   "Send one test alert through every configured notifier",
	Example: `  nest-events notify test --device "Front Door"`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		notifier, closeNotifier, err := buildNotifier(cfg)
		if err != nil {
			fmt.Printf("Error setting up notifiers: %v\n", err)
			os.Exit(1)
		}
		defer closeNotifier()

		loc, _ := cfg.Location()
		ts := detect.FormatLocal(time.Now().UTC().Format(time.RFC3339), loc)

		fmt.Printf("Sending test alert for %q ...\n", notifyDevice)

		if err := notifier.Deliver(cmd.Context(), notifyDevice, ts); err != nil {
			fmt.Printf("Error delivering alert: %v\n", err)
			closeNotifier()
			os.Exit(1)
		}

		fmt.Println("Alert delivered.")
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)

	notifyTestCmd.Flags().StringVar(&notifyDevice, "device", "Test Camera", "Device name to put in the alert")
}
