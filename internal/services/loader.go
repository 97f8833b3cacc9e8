package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tagboard/internal/database"
	"tagboard/internal/models"
)

// Loader seeds the tags table from json-server style JSON files
type Loader struct {
	db     *database.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a new Loader instance
func NewLoader(db *database.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, logger: logger, now: time.Now}
}

// LoadFromFile loads tags from a JSON file into the database
func (l *Loader) LoadFromFile(filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return l.LoadFromReader(file)
}

// LoadFromFolder loads all JSON files from a folder into the database.
// It returns the number of tags written and the number of files read.
func (l *Loader) LoadFromFolder(folderPath string) (int, int, error) {
	startTime := time.Now()

	if !filepath.IsAbs(folderPath) {
		folderPath = filepath.Join(".", folderPath)
	}

	l.logger.Info("loading seed folder", "folder", folderPath)

	files, err := os.ReadDir(folderPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read folder: %w", err)
	}

	totalCount := 0
	filesCount := 0

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		fileStart := time.Now()
		count, err := l.LoadFromFile(filepath.Join(folderPath, file.Name()))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load file %s: %w", file.Name(), err)
		}
		l.logger.Info("seed file loaded",
			"file", file.Name(),
			"tags", count,
			"took", time.Since(fileStart).Round(time.Millisecond))

		totalCount += count
		filesCount++
	}

	l.logger.Info("seed completed",
		"tags", totalCount,
		"files", filesCount,
		"took", time.Since(startTime).Round(time.Millisecond))

	return totalCount, filesCount, nil
}

// LoadFromReader loads a {"tags": [...]} document. Reloading the same file updates rows
// instead of duplicating them.
func (l *Loader) LoadFromReader(reader io.Reader) (int, error) {
	var input models.SeedFile
	if err := json.NewDecoder(reader).Decode(&input); err != nil {
		return 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	tags := input.GetTags()

	tx, err := l.db.GetConn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Rows are listed in created_at order, so each tag gets its own tick to keep file order.
	base := l.now().UTC()
	count := 0
	for i, tag := range tags {
		title := strings.TrimSpace(tag.Title)
		if title == "" {
			return 0, fmt.Errorf("tag %d: empty title", i)
		}
		if tag.AmountOfVideos < 0 {
			return 0, fmt.Errorf("tag %q: negative amountOfVideos", title)
		}
		upsert := database.UpsertTagWith
		id := tag.ID
		if id == "" {
			// No id to match on, so the slug identifies the row across reloads.
			upsert = database.UpsertTagBySlugWith
			if id, err = NewTagID(); err != nil {
				return 0, err
			}
		}
		slug := tag.Slug
		if slug == "" {
			slug = Slugify(title)
		}

		row := database.TagRow{
			ID:             id,
			Title:          title,
			Slug:           slug,
			AmountOfVideos: tag.AmountOfVideos,
			CreatedAt:      base.Add(time.Duration(i) * time.Microsecond).Format(createdAtLayout),
		}
		if err := upsert(tx, row); err != nil {
			return 0, fmt.Errorf("tag %q: %w", title, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return count, nil
}
