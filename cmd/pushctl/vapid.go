package main

import (
	"fmt"

	"keijiban-backend/utils"

	"github.com/spf13/cobra"
)

// NewVAPIDCommand crée la commande de génération des clés VAPID
func NewVAPIDCommand() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "Génère une paire de clés VAPID au format .env",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			publicKey, privateKey, err := utils.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("erreur lors de la génération des clés: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "VAPID_PUBLIC_KEY="+publicKey)
			fmt.Fprintln(out, "VAPID_PRIVATE_KEY="+privateKey)
			fmt.Fprintln(out, "VAPID_SUBJECT="+subject)
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  Ne partagez jamais la clé privée")
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "mailto:admin@example.com", "contact VAPID (mailto: ou https:)")
	return cmd
}
