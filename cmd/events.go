package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/masteryee/nest-events/internal/detect"
)

var (
	replayFile string
	replayAll  bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with captured event streams",
	Long:  `Check the alert policy offline against a stream captured earlier.`,
}

var eventsReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a captured stream through the classifier",
	Long: `Feeds every line of a captured event stream (as written by
"curl -N -H 'Accept: text/event-stream'") through a fresh classifier session
and prints the decision for each camera observation. Nothing is sent.`,
	Example: `  nest-events events replay --file stream.txt
  nest-events events replay --file - --all < stream.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		// 1. Open the capture
		var in io.Reader = os.Stdin
		if replayFile != "-" {
			f, err := os.Open(replayFile)
			if err != nil {
				fmt.Printf("Error opening capture: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			in = f
		}

		// 2. Classify line by line
		decisions, malformed, err := replay(in, detect.NewSession(cfg.DetectPolicy()), replayAll)
		if err != nil {
			fmt.Printf("Error reading capture: %v\n", err)
			os.Exit(1)
		}
		if malformed > 0 {
			fmt.Fprintf(os.Stderr, "Warning: skipped %d malformed data lines\n", malformed)
		}

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(decisions); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(decisions) == 0 {
			fmt.Println("No camera observations in this capture.")
			return
		}

		// 3. Print Table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tSTART (LOCAL)\tOUTCOME\tZONES")
		fmt.Fprintln(w, "------\t-------------\t-------\t-----")

		for _, d := range decisions {
			local := d.LocalTime
			if local == "" {
				local = "-"
			}
			zones := strings.Join(d.Zones, ",")
			if zones == "" {
				zones = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.DeviceName, local, d.Outcome, zones)
		}
		w.Flush()
	},
}

// replay feeds r through session. Unless all is set, observations without
// any event are left out since every snapshot repeats them.
func replay(r io.Reader, session *detect.Session, all bool) ([]detect.Decision, int, error) {
	var (
		out       []detect.Decision
		malformed int
	)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			ds, perr := session.ProcessLine(strings.TrimSuffix(line, "\n"))
			var mpe *detect.MalformedPayloadError
			if errors.As(perr, &mpe) {
				malformed++
			}
			for _, d := range ds {
				if all || d.Outcome != detect.OutcomeNoEvent {
					out = append(out, d)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return out, malformed, nil
		}
		if err != nil {
			return out, malformed, err
		}
	}
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsReplayCmd)

	eventsReplayCmd.Flags().StringVar(&replayFile, "file", "", "Captured stream file, or - for stdin")
	eventsReplayCmd.Flags().BoolVar(&replayAll, "all", false, "Also show cameras that reported no event")
	_ = eventsReplayCmd.MarkFlagRequired("file")
}
