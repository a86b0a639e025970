package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/masteryee/nest-events/internal/config"
	"github.com/masteryee/nest-events/pkg/models"
)

// Variables to hold flag values
var (
	loginForce   bool
	clientID     string
	clientSecret string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize this machine against your Nest account",
	Long: `Opens the Nest authorization page in your browser, waits for the redirect
on the local callback address and stores the access token for later commands.

Client credentials given as flags are saved to the config file.

Example:
  nest-events login --client-id abc --client-secret xyz`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Persist client credentials given on the command line
		if clientID != "" || clientSecret != "" {
			if clientID == "" || clientSecret == "" {
				log.Fatal("Error: --client-id and --client-secret must be given together.")
			}
			if err := config.SaveClient(clientID, clientSecret); err != nil {
				log.Fatalf("Failed to save configuration file: %v", err)
			}
		}

		cfg := loadConfig()
		authn := newAuthenticator(cfg)

		fmt.Printf("Authorizing against %s ...\n", cfg.AuthorizeURL)
		fmt.Printf("If no browser opens, visit the URL printed in the log.\n")

		// 2. Reuse the cached token unless a fresh one was requested
		var (
			cred *models.Credential
			err  error
		)
		if loginForce {
			cred, err = authn.Authorize(cmd.Context())
		} else {
			cred, err = authn.AcquireToken(cmd.Context())
		}
		if err != nil {
			log.Fatalf("Fatal: Authorization failed: %v", err)
		}

		fmt.Printf("Authorized. Token saved to %s (expires %s).\n",
			cfg.TokenFile, cred.Expiration.Local().Format(time.RFC1123))
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Authorize again even if a valid token is cached")
	loginCmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID of your Nest product")
	loginCmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret of your Nest product")
}
