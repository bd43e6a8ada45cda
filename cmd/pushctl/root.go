package main

import (
	"keijiban-backend/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions contient les options globales
type RootOptions struct {
	LogLevel string
	Pretty   bool
}

// NewRootCommand crée la commande racine
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "pushctl",
		Short:         "Outils pour les notifications push du tableau d'annonces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			utils.SetupLogger(opts.LogLevel, opts.Pretty)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "niveau de log (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", true, "logs lisibles en console")

	cmd.AddCommand(NewVAPIDCommand())
	cmd.AddCommand(NewTokenCommand())
	cmd.AddCommand(NewSendCommand())
	cmd.AddCommand(NewAgentCommand())

	return cmd
}
