package breakdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cookplane/internal/store"

	"github.com/google/uuid"
)

// ErrInvalidLevel is returned when granularity or energy is outside 1-5.
var ErrInvalidLevel = errors.New("level must be between 1 and 5")

// Cache resolves a (recipe, granularity, energy) key to a breakdown,
// generating and storing one on miss. Breakdowns are immutable once
// stored; only usage telemetry changes afterwards.
type Cache struct {
	store store.BreakdownStore
	gen   Generator
	log   *slog.Logger
}

// NewCache creates a breakdown cache over the given store and generator.
func NewCache(s store.BreakdownStore, gen Generator, log *slog.Logger) *Cache {
	return &Cache{store: s, gen: gen, log: log}
}

// Resolve returns the cached breakdown for the key, or generates one.
// A generator failure fails resolution; nothing partial is stored.
func (c *Cache) Resolve(ctx context.Context, recipeID string, granularity int, energy *int) (*store.RecipeBreakdown, error) {
	if granularity < 1 || granularity > 5 {
		return nil, fmt.Errorf("granularity %d: %w", granularity, ErrInvalidLevel)
	}
	if energy != nil && (*energy < 1 || *energy > 5) {
		return nil, fmt.Errorf("energy %d: %w", *energy, ErrInvalidLevel)
	}

	cached, err := c.store.GetBreakdownByKey(ctx, recipeID, granularity, energy)
	if err == nil {
		// Usage telemetry is best-effort; a failed touch never fails
		// the lookup.
		if err := c.store.TouchBreakdown(ctx, cached.ID, time.Now().UTC()); err != nil {
			c.log.WarnContext(ctx, "failed to record breakdown usage", "breakdown_id", cached.ID, "error", err)
		}
		return cached, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("breakdown lookup failed: %w", err)
	}

	steps, err := c.gen.Generate(ctx, recipeID, granularity, energy)
	if err != nil {
		return nil, fmt.Errorf("breakdown generation failed: %w", err)
	}
	if err := validateSteps(steps); err != nil {
		return nil, fmt.Errorf("generator returned invalid breakdown: %w", err)
	}

	b := &store.RecipeBreakdown{
		ID:               uuid.New(),
		RecipeID:         recipeID,
		GranularityLevel: granularity,
		EnergyLevel:      energy,
		Steps:            steps,
		CreatedAt:        time.Now().UTC(),
	}
	for _, step := range steps {
		b.TotalTimeSeconds += step.DurationSeconds
		if len(step.Timers) == 0 {
			// Steps without an embedded timer need hands-on attention.
			b.ActiveTimeSeconds += step.DurationSeconds
		}
	}

	if err := c.store.CreateBreakdown(ctx, b); err != nil {
		// A concurrent resolve may have stored the same key first; the
		// stored row wins either way.
		if existing, lookupErr := c.store.GetBreakdownByKey(ctx, recipeID, granularity, energy); lookupErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to store breakdown: %w", err)
	}

	c.log.InfoContext(ctx, "generated breakdown",
		"recipe_id", recipeID, "granularity", granularity, "steps", len(steps))
	return b, nil
}

func validateSteps(steps []store.BreakdownStep) error {
	if len(steps) == 0 {
		return errors.New("empty step list")
	}
	for i, step := range steps {
		if step.Index != i {
			return fmt.Errorf("step %d has index %d", i, step.Index)
		}
		if step.Instruction == "" {
			return fmt.Errorf("step %d has no instruction", i)
		}
		for _, dep := range step.DependsOn {
			if dep < 0 || dep >= i {
				return fmt.Errorf("step %d depends on invalid step %d", i, dep)
			}
		}
	}
	return nil
}
