package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGenerator memoizes successful generations by prompt.
// Failures are never cached.
type CachedGenerator struct {
	next  Generator
	cache *lru.Cache[string, string]
}

func NewCachedGenerator(next Generator, size int) (*CachedGenerator, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedGenerator{next: next, cache: cache}, nil
}

func (c *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}
	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

func (c *CachedGenerator) Len() int { return c.cache.Len() }

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
