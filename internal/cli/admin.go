package cli

import (
	"fmt"
	"log"

	"quizify-service/internal/config"

	"github.com/spf13/cobra"
)

// NewCreateAdminCmd provisions an admin account. Admins cannot sign up through the API.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured; in-memory accounts do not outlive this command")
			}
			s, err := buildStack(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.auth.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			log.Printf("admin %s created with id %s", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	return cmd
}
