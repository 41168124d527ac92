// Package seed generates demo entities and records for local runs. The
// seeder is an explicit collaborator: the binary constructs one and invokes
// it against an empty datastore, nothing seeds implicitly.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/c360/insight/analytics"
	"github.com/c360/insight/errors"
)

// Config sizes the generated dataset.
type Config struct {
	// Entities is how many demo entities to create.
	Entities int `json:"entities" yaml:"entities"`

	// Days is how far back the generated history reaches.
	Days int `json:"days" yaml:"days"`

	// RecordsPerDay is how many records each entity gets per day.
	RecordsPerDay int `json:"records_per_day" yaml:"records_per_day"`
}

// DefaultConfig returns a dataset large enough to clear the engine's
// full-analytics threshold for every entity.
func DefaultConfig() Config {
	return Config{
		Entities:      3,
		Days:          21,
		RecordsPerDay: 2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Entities <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "seed", "Validate",
			fmt.Sprintf("entities must be positive, got %d", c.Entities))
	}
	if c.Days <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "seed", "Validate",
			fmt.Sprintf("days must be positive, got %d", c.Days))
	}
	if c.RecordsPerDay <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "seed", "Validate",
			fmt.Sprintf("records_per_day must be positive, got %d", c.RecordsPerDay))
	}
	return nil
}

// Writer is the write surface the seeder populates. MemoryStore satisfies it.
type Writer interface {
	AddEntity(entity analytics.Entity)
	AddRecords(entityID string, records ...analytics.Record)
}

// Seeder generates demo data.
type Seeder struct {
	config Config
	rng    *rand.Rand
	now    func() time.Time
}

// Option configures the seeder.
type Option func(*Seeder)

// WithRand sets the random source. A fixed-seed source makes the generated
// dataset reproducible across runs.
func WithRand(rng *rand.Rand) Option {
	return func(s *Seeder) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a seeder.
func New(config Config, options ...Option) (*Seeder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Seeder{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

var entityNames = []string{
	"Atlas", "Borealis", "Cascade", "Delta", "Ember",
	"Fathom", "Gale", "Harbor", "Ion", "Juniper",
}

var notesByCategory = map[string][]string{
	analytics.CategoryEmotion: {
		"calm morning", "frustrated by delays", "energized after break",
		"restless", "content",
	},
	analytics.CategorySensory: {
		"noise sensitivity high", "bright light discomfort", "quiet environment",
		"crowded space", "comfortable temperature",
	},
	analytics.CategoryTracking: {
		"routine completed", "skipped afternoon block", "early start",
		"extended session", "schedule change",
	},
}

var categories = []string{
	analytics.CategoryEmotion,
	analytics.CategorySensory,
	analytics.CategoryTracking,
}

// Populate generates entities and their record history into the writer and
// returns the created entities.
func (s *Seeder) Populate(w Writer) []analytics.Entity {
	entities := make([]analytics.Entity, 0, s.config.Entities)

	for i := 0; i < s.config.Entities; i++ {
		entity := analytics.Entity{
			ID:   uuid.New().String(),
			Name: s.entityName(i),
		}
		w.AddEntity(entity)
		w.AddRecords(entity.ID, s.history()...)
		entities = append(entities, entity)
	}
	return entities
}

func (s *Seeder) entityName(i int) string {
	name := entityNames[i%len(entityNames)]
	if i >= len(entityNames) {
		return fmt.Sprintf("%s-%d", name, i/len(entityNames)+1)
	}
	return name
}

// history builds the record series oldest first, spread evenly across the
// configured day span so the newest record lands inside the recency window.
func (s *Seeder) history() []analytics.Record {
	now := s.now()
	records := make([]analytics.Record, 0, s.config.Days*s.config.RecordsPerDay)

	for day := s.config.Days - 1; day >= 0; day-- {
		// Records within a day sit 3h apart, the day's last one at the day
		// mark itself so nothing is stamped in the future.
		base := now.AddDate(0, 0, -day).Add(-time.Duration(s.config.RecordsPerDay-1) * 3 * time.Hour)
		for n := 0; n < s.config.RecordsPerDay; n++ {
			category := categories[s.rng.Intn(len(categories))]
			notes := notesByCategory[category]

			records = append(records, analytics.Record{
				ID:        uuid.New().String(),
				Timestamp: base.Add(time.Duration(n) * 3 * time.Hour),
				Category:  category,
				Positive:  s.rng.Float64() < 0.6,
				Intensity: float64(s.rng.Intn(10) + 1),
				Note:      notes[s.rng.Intn(len(notes))],
			})
		}
	}
	return records
}
