package matchscore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"creator-match/internal/common/logger"
	"creator-match/internal/models"
	"creator-match/internal/wizard"

	"github.com/redis/go-redis/v9"
)

// CachingGenerator remembers a pair's result in Redis so analysing the same
// business and creator again shows the same score. Cache failures fall
// through to the wrapped generator.
type CachingGenerator struct {
	next   wizard.ScoreGenerator
	redis  *redis.Client
	config *Config
	logger logger.Logger
}

func NewCachingGenerator(next wizard.ScoreGenerator, rdb *redis.Client, config *Config, log logger.Logger) *CachingGenerator {
	return &CachingGenerator{
		next:   next,
		redis:  rdb,
		config: config,
		logger: logger.ForComponent(log, "match-score-cache"),
	}
}

func (g *CachingGenerator) Generate(ctx context.Context, business models.BusinessProfile, creator models.CreatorProfile) (*models.MatchResult, error) {
	key := g.config.CachePrefix + pairKey(business, creator)

	if val, err := g.redis.Get(ctx, key).Result(); err == nil {
		var cached models.MatchResult
		if err := json.Unmarshal([]byte(val), &cached); err == nil && cached.Valid() {
			return &cached, nil
		}
		g.logger.Warn("dropping unreadable cached score", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		g.logger.Warn("score cache read failed", map[string]interface{}{"error": err})
	}

	result, err := g.next.Generate(ctx, business, creator)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = g.redis.Set(ctx, key, data, g.config.CacheTTL).Err()
	}
	if err != nil {
		g.logger.Warn("score cache write failed", map[string]interface{}{"error": err})
	}

	return result, nil
}

// pairKey hashes the normalized handles; case and surrounding spaces do not
// create a new entry.
func pairKey(b models.BusinessProfile, c models.CreatorProfile) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	parts := []string{
		norm(b.Website), norm(b.Instagram), norm(b.YouTube), norm(b.TikTok),
		norm(c.Instagram), norm(c.YouTube), norm(c.TikTok),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
