package cmd

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"

	"github.com/masteryee/nest-events/internal/auth"
	"github.com/masteryee/nest-events/internal/metrics"
	svc "github.com/masteryee/nest-events/internal/service"
	"github.com/masteryee/nest-events/internal/stream"
)

var serviceAction string // "install", "uninstall", "start", "stop"

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Watch the event stream and send person alerts",
	Long: `Keeps the Nest event stream open, reconnecting after every failure, and
sends an alert for each new person detection. Serves /metrics and /healthz
on status_addr. Can be installed as a system service.`,
	Example: `  nest-events listen
  nest-events listen --service install`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		// 1. Define Service Configuration
		arguments := []string{"listen"}
		if cfgFile != "" {
			abs, err := filepath.Abs(cfgFile)
			if err != nil {
				log.Fatal(err)
			}
			arguments = append(arguments, "--config", abs)
		}

		prg := svc.NewProgram()
		s, err := service.New(prg, svc.Config(arguments))
		if err != nil {
			log.Fatal(err)
		}

		// 2. Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if serviceAction == "install" {
				// The service cannot open a browser, so a token must already exist.
				cred, err := auth.NewStore(cfg.TokenFile).Load()
				if err != nil || !cred.Valid(time.Now()) {
					log.Fatal("Error: no valid token cached. Run 'nest-events login' before installing the service.")
				}
			}

			err = service.Control(s, serviceAction)
			if err != nil {
				log.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// 3. Acquire the token; only an interactive run may open a browser
		var token string
		if service.Interactive() {
			token = requireToken(cmd.Context(), cfg)
		} else {
			cred, err := auth.NewStore(cfg.TokenFile).Load()
			if err != nil || !cred.Valid(time.Now()) {
				log.Fatal("Fatal: no valid token cached. Run 'nest-events login' interactively.")
			}
			token = cred.AccessToken
		}

		// 4. Wire the consumer and status server under one supervisor
		notifier, closeNotifier, err := buildNotifier(cfg)
		if err != nil {
			log.Fatalf("Failed to set up notifiers: %v", err)
		}
		defer closeNotifier()

		m := metrics.New()
		consumer := &stream.Consumer{
			Opener:         newAPI(cfg),
			Policy:         cfg.DetectPolicy(),
			Notifier:       notifier,
			Metrics:        m,
			Token:          token,
			ReconnectDelay: cfg.ReconnectDelay,
		}
		prg.Services = []suture.Service{consumer}
		if cfg.StatusAddr != "" {
			prg.Services = append(prg.Services, svc.NewStatusServer(cfg.StatusAddr, m.Registry))
		}

		// 5. Run the Service (Blocking)
		// This happens when the Service Manager starts the binary, OR when run interactively without flags
		logger, err := s.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = s.Run(); err != nil {
			_ = logger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
