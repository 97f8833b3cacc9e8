package services

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"tagboard/internal/database"
	"tagboard/internal/models"
)

// MaxGenerateCount caps a single dummy generation request
const MaxGenerateCount = 10000

var dummyWords = []string{
	"go", "gopher", "rust", "react", "hooks", "query", "cache", "tutorial",
	"live", "coding", "music", "lofi", "travel", "vlog", "cooking", "street",
	"food", "gaming", "speedrun", "retro", "design", "ux", "cloud", "kubernetes",
	"docker", "linux", "terminal", "vim", "keyboard", "setup", "review", "unboxing",
}

// Generator creates dummy tags so the screen has something to page through
type Generator struct {
	db     *database.DB
	logger *slog.Logger
	rand   *rand.Rand
	now    func() time.Time
}

// NewGenerator creates a new Generator instance
func NewGenerator(db *database.DB, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		db:     db,
		logger: logger,
		rand:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x7a6b)),
		now:    time.Now,
	}
}

// GenerateDummyTags inserts count random tags with 0..maxVideos videos each. Titles that collide
// with an existing slug are skipped. onTag, when set, is called for every inserted tag and can stop
// the run by returning an error. It returns how many tags were inserted.
func (g *Generator) GenerateDummyTags(count, maxVideos int, onTag func(models.Tag) error) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("count must be positive, got %d", count)
	}
	if count > MaxGenerateCount {
		return 0, fmt.Errorf("count must be at most %d, got %d", MaxGenerateCount, count)
	}
	if maxVideos < 0 {
		return 0, fmt.Errorf("maxVideos must not be negative, got %d", maxVideos)
	}

	start := time.Now()
	g.logger.Info("generating dummy tags", "count", count, "max_videos", maxVideos)

	inserted := 0
	skipped := 0
	for i := 0; i < count; i++ {
		title := g.randomTitle()
		id, err := NewTagID()
		if err != nil {
			return inserted, err
		}
		row := database.TagRow{
			ID:             id,
			Title:          title,
			Slug:           Slugify(title),
			AmountOfVideos: g.rand.IntN(maxVideos + 1),
			CreatedAt:      g.now().UTC().Format(createdAtLayout),
		}
		ok, err := g.db.InsertTagIfNotExists(row)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert tag %q: %w", title, err)
		}
		if !ok {
			skipped++
			g.logger.Debug("dummy tag skipped", "slug", row.Slug)
			continue
		}
		inserted++
		if onTag != nil {
			if err := onTag(toTag(row)); err != nil {
				return inserted, err
			}
		}
	}

	g.logger.Info("dummy generation completed",
		"inserted", inserted,
		"skipped", skipped,
		"took", time.Since(start).Round(time.Millisecond))
	return inserted, nil
}

func (g *Generator) randomTitle() string {
	n := 1 + g.rand.IntN(3)
	words := make([]string, n)
	for i := range words {
		w := dummyWords[g.rand.IntN(len(dummyWords))]
		if i == 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		words[i] = w
	}
	return fmt.Sprintf("%s %d", strings.Join(words, " "), g.rand.IntN(1000))
}
