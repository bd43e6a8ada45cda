package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"keijiban-backend/client"
	"keijiban-backend/models"

	"github.com/spf13/cobra"
)

// NewSendCommand crée la commande de diffusion manuelle
func NewSendCommand() *cobra.Command {
	var (
		server string
		token  string
		req    models.NotificationRequest
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Diffuse une notification à tous les abonnés",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Title == "" {
				return errors.New("--title est requis")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			result, err := client.New(server, token, nil).Broadcast(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent=%d failed=%d\n", result.Sent, result.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8090", "URL du serveur")
	cmd.Flags().StringVar(&token, "token", "", "token de session")
	cmd.Flags().StringVar(&req.Title, "title", "", "titre de la notification")
	cmd.Flags().StringVar(&req.Body, "body", "", "corps de la notification")
	cmd.Flags().StringVar(&req.URL, "url", "", "URL ouverte au clic")
	return cmd
}
