package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/logging"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// DiaryService is the ownership-scoped diary store. Every method takes the
// resolved owner; there is no way to reach an entry by id alone.
type DiaryService struct {
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         func() time.Time
}

func NewDiaryService(m repomanager.RepositoryManager, log logging.Logger) *DiaryService {
	return &DiaryService{
		repomanager: m,
		log:         log.With("module", "diaries"),
		now:         utcNow,
	}
}

// Create stores a new entry for owner. A zero EntryDate defaults to today.
func (s *DiaryService) Create(ctx context.Context, input models.Diary, owner *models.User) (*models.Diary, error) {
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}

	now := s.now()
	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}

	diary := &models.Diary{
		ID:        uuid.NewString(),
		UserID:    owner.ID,
		Title:     input.Title,
		Content:   input.Content,
		EntryDate: models.DateOnly(entryDate),
		CreatedAt: now,
		UpdatedAt: now,
	}

	d, err := s.repomanager.Diaries(s.repomanager.Conn()).Create(ctx, diary)
	if err != nil {
		return nil, fmt.Errorf("error creating diary: %w", err)
	}

	s.log.Info(ctx, "diary created", "user_id", owner.ID, "diary_id", d.ID)
	return d, nil
}

// FindByIDForOwner returns nil, nil when the entry is missing or belongs to
// someone else.
func (s *DiaryService) FindByIDForOwner(ctx context.Context, id string, owner *models.User) (*models.Diary, error) {
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}
	d, err := s.repomanager.Diaries(s.repomanager.Conn()).FindByIDAndUser(ctx, id, owner.ID)
	return optional(d, err)
}

// Update applies title, content and (when set) entry date in one statement
// and refreshes UpdatedAt. Missing and foreign entries both yield
// common.ErrNotFoundOrForbidden.
func (s *DiaryService) Update(ctx context.Context, id string, changes models.DiaryChanges, owner *models.User) (*models.Diary, error) {
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}

	d, err := s.repomanager.Diaries(s.repomanager.Conn()).Update(ctx, id, owner.ID, changes, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("error updating diary: %w", err)
	}

	s.log.Info(ctx, "diary updated", "user_id", owner.ID, "diary_id", id)
	return d, nil
}

// Delete removes the entry permanently. Deleting it again fails with
// common.ErrNotFoundOrForbidden.
func (s *DiaryService) Delete(ctx context.Context, id string, owner *models.User) error {
	if owner == nil {
		return common.ErrUnauthenticated
	}

	if err := s.repomanager.Diaries(s.repomanager.Conn()).Delete(ctx, id, owner.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNotFoundOrForbidden
		}
		return fmt.Errorf("error deleting diary: %w", err)
	}

	s.log.Info(ctx, "diary deleted", "user_id", owner.ID, "diary_id", id)
	return nil
}

// ListByOwner returns one page of the owner's entries, newest first.
func (s *DiaryService) ListByOwner(ctx context.Context, owner *models.User, pageIndex, pageSize int) (*models.Page[models.Diary], error) {
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}
	pageIndex, pageSize = normalizePage(pageIndex, pageSize)
	repo := s.repomanager.Diaries(s.repomanager.Conn())

	total, err := repo.CountByUser(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("error counting diaries: %w", err)
	}
	offset, ok := pageOffset(pageIndex, pageSize)
	if !ok {
		return models.NewPage[models.Diary](nil, pageIndex, pageSize, total), nil
	}
	items, err := repo.ListByUser(ctx, owner.ID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing diaries: %w", err)
	}
	return models.NewPage(items, pageIndex, pageSize, total), nil
}

// Search pages through the owner's entries whose title or content contains
// keyword, ignoring case. A blank keyword is the same as ListByOwner.
func (s *DiaryService) Search(ctx context.Context, owner *models.User, keyword string, pageIndex, pageSize int) (*models.Page[models.Diary], error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.ListByOwner(ctx, owner, pageIndex, pageSize)
	}
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}
	pageIndex, pageSize = normalizePage(pageIndex, pageSize)
	repo := s.repomanager.Diaries(s.repomanager.Conn())

	total, err := repo.CountSearch(ctx, owner.ID, keyword)
	if err != nil {
		return nil, fmt.Errorf("error counting diaries: %w", err)
	}
	offset, ok := pageOffset(pageIndex, pageSize)
	if !ok {
		return models.NewPage[models.Diary](nil, pageIndex, pageSize, total), nil
	}
	items, err := repo.SearchByUser(ctx, owner.ID, keyword, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("error searching diaries: %w", err)
	}
	return models.NewPage(items, pageIndex, pageSize, total), nil
}

// CountByOwner counts all of the owner's entries regardless of any search.
func (s *DiaryService) CountByOwner(ctx context.Context, owner *models.User) (int64, error) {
	if owner == nil {
		return 0, common.ErrUnauthenticated
	}
	n, err := s.repomanager.Diaries(s.repomanager.Conn()).CountByUser(ctx, owner.ID)
	if err != nil {
		return 0, fmt.Errorf("error counting diaries: %w", err)
	}
	return n, nil
}

func normalizePage(pageIndex, pageSize int) (int, int) {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize <= 0 {
		pageSize = PageSize
	}
	return pageIndex, pageSize
}

// pageOffset is false when the page starts past any row the store can hold.
func pageOffset(pageIndex, pageSize int) (int, bool) {
	if pageIndex > math.MaxInt/pageSize {
		return 0, false
	}
	return pageIndex * pageSize, true
}
