package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisCacheStorage range chaque espace de cache dans un hash Redis (champ = URL).
// L'ensemble <prefix>caches liste les noms connus.
type RedisCacheStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisCacheStorage crée un stockage de caches sur Redis
func NewRedisCacheStorage(client *redis.Client, prefix string) *RedisCacheStorage {
	return &RedisCacheStorage{client: client, prefix: prefix}
}

func (s *RedisCacheStorage) namesKey() string {
	return s.prefix + "caches"
}

func (s *RedisCacheStorage) cacheKey(name string) string {
	return s.prefix + "cache:" + name
}

// Open ne contacte pas Redis: le nom est enregistré à la première écriture
func (s *RedisCacheStorage) Open(_ context.Context, name string) (Cache, error) {
	return &redisCache{storage: s, name: name, key: s.cacheKey(name)}, nil
}

// Names retourne les noms de cache enregistrés, triés
func (s *RedisCacheStorage) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la lecture des caches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Delete supprime un cache et ses entrées en une transaction
func (s *RedisCacheStorage) Delete(ctx context.Context, name string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.cacheKey(name))
		pipe.SRem(ctx, s.namesKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("erreur lors de la suppression du cache %s: %w", name, err)
	}
	return nil
}

type redisCache struct {
	storage *RedisCacheStorage
	name    string
	key     string
}

func (c *redisCache) Match(ctx context.Context, url string) (*Entry, error) {
	raw, err := c.storage.client.HGet(ctx, c.key, url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCachedResponse
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la lecture du cache: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("entrée de cache illisible pour %s: %w", url, err)
	}
	return &e, nil
}

func (c *redisCache) Put(ctx context.Context, entry *Entry) error {
	return c.PutAll(ctx, []*Entry{entry})
}

func (c *redisCache) PutAll(ctx context.Context, entries []*Entry) error {
	values := make([]interface{}, 0, 2*len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("erreur lors de la sérialisation de %s: %w", e.URL, err)
		}
		values = append(values, e.URL, data)
	}
	if len(values) == 0 {
		return nil
	}

	_, err := c.storage.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, c.storage.namesKey(), c.name)
		pipe.HSet(ctx, c.key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("erreur lors de l'écriture du cache: %w", err)
	}
	return nil
}

func (c *redisCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.storage.client.HKeys(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la lecture du cache: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
