package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"keijiban-backend/utils"

	"github.com/spf13/cobra"
)

// NewTokenCommand crée la commande qui signe un token de session.
// Le secret vient de JWT_SECRET (ou du fichier .env).
func NewTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Signe un token de session pour un utilisateur",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET est requis")
			}
			if userID == "" {
				return errors.New("--user est requis")
			}
			token, err := utils.GenerateTokenWithTTL(userID, email, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "identifiant de l'utilisateur")
	cmd.Flags().StringVar(&email, "email", "", "email de l'utilisateur")
	cmd.Flags().DurationVar(&ttl, "ttl", utils.TokenTTL, "durée de validité")
	return cmd
}
