package matchscore

import (
	"context"
	"math/rand/v2"
	"sync"

	"creator-match/internal/common/logger"
	"creator-match/internal/models"
)

const Name = "random-match-score"

var (
	excellentReasons = []string{
		"Similar target audience demographics",
		"Complementary content themes",
		"High engagement rate alignment",
	}
	goodReasons = []string{
		"Moderate audience overlap",
		"Some content synergy potential",
	}
	poorReasons = []string{
		"Limited audience overlap",
		"Different content focus areas",
	}
)

// ReasonsFor returns a fresh copy of the canned reasons for a score's band.
func ReasonsFor(compatibility int) []string {
	var src []string
	switch models.RecommendationFor(compatibility) {
	case models.RecommendationExcellent:
		src = excellentReasons
	case models.RecommendationGood:
		src = goodReasons
	default:
		src = poorReasons
	}
	return append([]string(nil), src...)
}

// BuildResult derives the full MatchResult from a score.
func BuildResult(compatibility int) *models.MatchResult {
	return &models.MatchResult{
		Compatibility:  compatibility,
		Reasons:        ReasonsFor(compatibility),
		Recommendation: models.RecommendationFor(compatibility),
	}
}

// RandomGenerator is the placeholder analysis: it ignores both profiles and
// draws a uniform score in [1,100]. It never fails.
type RandomGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger logger.Logger
}

type ServiceDependencies struct {
	Logger logger.Logger
}

func NewRandomGenerator(deps ServiceDependencies, config *Config) *RandomGenerator {
	if config == nil {
		config = DefaultConfig()
	}

	var src rand.Source
	if config.Seed != 0 {
		src = rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &RandomGenerator{
		rng:    rand.New(src),
		logger: logger.ForComponent(deps.Logger, Name),
	}
}

func (g *RandomGenerator) Generate(_ context.Context, _ models.BusinessProfile, _ models.CreatorProfile) (*models.MatchResult, error) {
	score := g.draw()
	g.logger.Debug("compatibility drawn", map[string]interface{}{"score": score})
	return BuildResult(score), nil
}

func (g *RandomGenerator) draw() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(models.MaxCompatibility) + models.MinCompatibility
}
