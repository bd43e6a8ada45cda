package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RoundTrip intercepte les requêtes des pages contrôlées.
// Seuls les GET de même origine hors API externe passent par le cache (network-first);
// tout le reste, et tout avant l'activation, va directement au réseau.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	if w.State() != StateActive || !w.intercepts(req) {
		return w.network.RoundTrip(req)
	}

	key := cacheKey(req.URL)
	resp, err := w.network.RoundTrip(req)
	if err == nil {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return w.store(req.Context(), key, resp)
		}
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}

	cache, cerr := w.caches.Open(req.Context(), w.cfg.CacheName)
	if cerr != nil {
		return nil, fmt.Errorf("%w: %w", err, cerr)
	}
	if entry, merr := cache.Match(req.Context(), key); merr == nil {
		log.Debug().Str("url", key).Msg("worker: réponse servie depuis le cache")
		return entry.Response(req), nil
	}
	if acceptsHTML(req) {
		if entry, merr := cache.Match(req.Context(), resolveURL(w.cfg.Origin, w.cfg.ShellPath)); merr == nil {
			log.Debug().Str("url", key).Msg("worker: coquille hors ligne servie")
			return entry.Response(req), nil
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrNoCachedResponse, err)
}

func (w *Worker) intercepts(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	for _, host := range w.cfg.BypassHosts {
		if host != "" && strings.Contains(req.URL.Host, host) {
			return false
		}
	}
	return req.URL.Scheme == w.origin.Scheme && req.URL.Host == w.origin.Host
}

// store copie le corps dans le cache et retourne une réponse relisible.
// Un échec d'écriture n'empêche pas de servir la réponse réseau.
func (w *Worker) store(ctx context.Context, key string, resp *http.Response) (*http.Response, error) {
	defer resp.Body.Close()
	entry, err := readEntry(key, resp)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(entry.Body))
	resp.ContentLength = int64(len(entry.Body))

	cache, err := w.caches.Open(ctx, w.cfg.CacheName)
	if err == nil {
		err = cache.Put(ctx, entry)
	}
	if err != nil {
		log.Warn().Err(err).Str("url", key).Msg("⚠️ worker: mise en cache impossible")
	}
	return resp, nil
}

func readEntry(key string, resp *http.Response) (*Entry, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la lecture de %s: %w", key, err)
	}
	return &Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

func cacheKey(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func acceptsHTML(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
