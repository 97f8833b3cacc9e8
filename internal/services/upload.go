package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tagboard/internal/database"
	apperrors "tagboard/internal/errors"
)

// ImportMode is override (upsert by slug) or replace (delete every tag then insert).
type ImportMode string

const (
	ImportModeOverride ImportMode = "override"
	ImportModeReplace  ImportMode = "replace"
)

// ParseImportMode maps a form value to an ImportMode. Empty means override.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportModeOverride:
		return ImportModeOverride, nil
	case ImportModeReplace:
		return ImportModeReplace, nil
	default:
		return "", apperrors.Validationf("mode must be %q or %q", ImportModeOverride, ImportModeReplace)
	}
}

// UploadService handles CSV import into the tags table.
type UploadService struct {
	db  *database.DB
	now func() time.Time
}

// NewUploadService creates a new UploadService.
func NewUploadService(db *database.DB) *UploadService {
	return &UploadService{db: db, now: time.Now}
}

// ImportResult holds the number of rows written.
type ImportResult struct {
	Count int
}

// ImportFromCSV parses CSV from reader and imports per mode. CSV format: header with "title" and
// "amountOfVideos" columns in any order; rows: title,amount. Blank lines are skipped.
func (u *UploadService) ImportFromCSV(reader io.Reader, mode ImportMode) (*ImportResult, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Validationf("failed to read CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, apperrors.Validation("CSV is empty")
	}

	titleCol, videosCol := -1, -1
	for i, h := range records[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "title":
			titleCol = i
		case "amountofvideos", "amount_of_videos":
			videosCol = i
		}
	}
	if titleCol < 0 || videosCol < 0 {
		return nil, apperrors.Validation("CSV header must contain title and amountOfVideos columns")
	}

	rows := make([]database.TagRow, 0, len(records)-1)
	base := u.now().UTC()
	for idx, rec := range records[1:] {
		line := idx + 2
		if allEmpty(rec) {
			continue
		}
		if len(rec) <= titleCol || len(rec) <= videosCol {
			return nil, apperrors.Validationf("row %d: expected %d columns, got %d", line, len(records[0]), len(rec))
		}
		title := strings.TrimSpace(rec[titleCol])
		slug := Slugify(title)
		if slug == "" {
			return nil, apperrors.Validationf("row %d: title %q has no letters or digits", line, title)
		}
		videos, err := strconv.Atoi(strings.TrimSpace(rec[videosCol]))
		if err != nil || videos < 0 {
			return nil, apperrors.Validationf("row %d: invalid amountOfVideos %q", line, rec[videosCol])
		}
		id, err := NewTagID()
		if err != nil {
			return nil, err
		}
		rows = append(rows, database.TagRow{
			ID:             id,
			Title:          title,
			Slug:           slug,
			AmountOfVideos: videos,
			CreatedAt:      base.Add(time.Duration(idx) * time.Microsecond).Format(createdAtLayout),
		})
	}

	tx, err := u.db.GetConn().Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if mode == ImportModeReplace {
		if err := database.DeleteAllTagsWith(tx); err != nil {
			return nil, err
		}
	}

	for _, row := range rows {
		if err := database.UpsertTagBySlugWith(tx, row); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return nil, apperrors.AlreadyExistsf("tag %q already exists", row.Slug)
			}
			return nil, fmt.Errorf("failed to import tag %q: %w", row.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &ImportResult{Count: len(rows)}, nil
}

func allEmpty(ss []string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
