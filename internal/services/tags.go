package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tagboard/internal/database"
	apperrors "tagboard/internal/errors"
	"tagboard/internal/models"
)

const (
	// DefaultPerPage is used when the caller does not ask for a page size
	DefaultPerPage = 10
	// MaxPerPage caps the page size
	MaxPerPage = 100
)

// CreateTagInput is the payload for creating a tag
type CreateTagInput struct {
	Title          string `json:"title" validate:"required,max=120"`
	AmountOfVideos int    `json:"amountOfVideos" validate:"gte=0"`
}

// TagsService handles tag operations for the tag source (DB only)
type TagsService struct {
	db       *database.DB
	validate *validator.Validate
	now      func() time.Time
}

// NewTagsService creates a new TagsService
func NewTagsService(db *database.DB) *TagsService {
	return &TagsService{db: db, validate: validator.New(), now: time.Now}
}

// ListPage returns one page of tags in json-server's envelope. If search is non-empty,
// only tags whose title contains it (case-insensitive) are counted and listed.
func (s *TagsService) ListPage(page, perPage int, search string) (models.TagPage, error) {
	search = strings.TrimSpace(search)
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	var total int
	var err error
	if search != "" {
		total, err = s.db.CountTagsWithSearch(search)
	} else {
		total, err = s.db.CountTags()
	}
	if err != nil {
		return models.TagPage{}, fmt.Errorf("count tags: %w", err)
	}

	// Past the last page; also keeps the offset below from overflowing.
	if page > (total+perPage-1)/perPage {
		return models.NewTagPage(page, perPage, total, nil), nil
	}
	offset := (page - 1) * perPage

	var rows []database.TagRow
	if search != "" {
		rows, err = s.db.ListTagsPaginatedWithSearch(offset, perPage, search)
	} else {
		rows, err = s.db.ListTagsPaginated(offset, perPage)
	}
	if err != nil {
		return models.TagPage{}, fmt.Errorf("list tags: %w", err)
	}

	data := make([]models.Tag, 0, len(rows))
	for _, r := range rows {
		data = append(data, toTag(r))
	}
	return models.NewTagPage(page, perPage, total, data), nil
}

// GetTag returns one tag by id
func (s *TagsService) GetTag(id string) (models.Tag, error) {
	r, err := s.db.GetTag(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.Tag{}, apperrors.NotFoundf("tag %s not found", id)
		}
		return models.Tag{}, apperrors.Internal("get tag", err)
	}
	return toTag(r), nil
}

// CreateTag inserts a tag with a generated id and a slug derived from its title
func (s *TagsService) CreateTag(in CreateTagInput) (models.Tag, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return models.Tag{}, apperrors.Validation(validationMessage(err))
	}
	slug := Slugify(in.Title)
	if slug == "" {
		return models.Tag{}, apperrors.Validation("title must contain letters or digits")
	}

	id, err := NewTagID()
	if err != nil {
		return models.Tag{}, apperrors.Internal("create tag", err)
	}
	r := database.TagRow{
		ID:             id,
		Title:          in.Title,
		Slug:           slug,
		AmountOfVideos: in.AmountOfVideos,
		CreatedAt:      s.now().UTC().Format(createdAtLayout),
	}
	if err := s.db.InsertTag(r); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return models.Tag{}, apperrors.AlreadyExistsf("tag %q already exists", slug)
		}
		return models.Tag{}, apperrors.Internal("create tag", err)
	}
	return toTag(r), nil
}

// DeleteTag removes a tag by id
func (s *TagsService) DeleteTag(id string) error {
	if err := s.db.DeleteTag(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.NotFoundf("tag %s not found", id)
		}
		return apperrors.Internal("delete tag", err)
	}
	return nil
}

func toTag(r database.TagRow) models.Tag {
	return models.Tag{
		ID:             r.ID,
		Title:          r.Title,
		Slug:           r.Slug,
		AmountOfVideos: r.AmountOfVideos,
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
