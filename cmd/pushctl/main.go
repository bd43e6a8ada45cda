// Commande pushctl: outils d'exploitation des notifications push (clés VAPID,
// tokens de test, diffusion manuelle et agent abonné).
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("❌ Commande échouée")
		os.Exit(1)
	}
}
