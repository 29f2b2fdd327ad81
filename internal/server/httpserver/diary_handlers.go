package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/services"
	"github.com/dmitrijs2005/dailydiary/internal/server/validator"
	"github.com/google/uuid"
)

const exportHistoryLimit = 20

type diaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	EntryDate string    `json:"entry_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDiaryResponse(d *models.Diary) diaryResponse {
	return diaryResponse{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		EntryDate: d.EntryDate.Format(models.DateLayout),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type dashboardResponse struct {
	Username      string          `json:"username"`
	SearchKeyword *string         `json:"search_keyword"`
	Diaries       []diaryResponse `json:"diaries"`
	CurrentPage   int             `json:"current_page"`
	TotalPages    int             `json:"total_pages"`
	HasPrevious   bool            `json:"has_previous"`
	HasNext       bool            `json:"has_next"`
	PageSize      int             `json:"page_size"`
	TotalElements int64           `json:"total_elements"`
	TotalDiaries  int64           `json:"total_diaries"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user *models.User) {
	q := r.URL.Query()

	number, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		number = 1
	}
	pageIndex := services.PageIndexFromNumber(number)

	var keyword *string
	if k := strings.TrimSpace(q.Get("search")); k != "" {
		keyword = &k
	}

	page, err := s.diaries.Search(r.Context(), user, q.Get("search"), pageIndex, services.PageSize)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	total, err := s.diaries.CountByOwner(r.Context(), user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	items := make([]diaryResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toDiaryResponse(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Username:      user.UserName,
		SearchKeyword: keyword,
		Diaries:       items,
		CurrentPage:   page.Number(),
		TotalPages:    page.TotalPages,
		HasPrevious:   page.HasPrevious(),
		HasNext:       page.HasNext(),
		PageSize:      services.PageSize,
		TotalElements: page.TotalElements,
		TotalDiaries:  total,
	})
}

// readDiaryInput validates the entry form and writes the 400 itself.
func readDiaryInput(w http.ResponseWriter, r *http.Request) (title, content string, entryDate *time.Time, ok bool) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return "", "", nil, false
	}

	title, content = in.Get("title"), in.Get("content")
	if errs := validator.ValidateDiary(title, content, in.Get("entry_date")); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return "", "", nil, false
	}

	entryDate, _ = validator.ParseEntryDate(in.Get("entry_date"))
	return title, content, entryDate, true
}

func (s *Server) handleCreateDiary(w http.ResponseWriter, r *http.Request, user *models.User) {
	title, content, entryDate, ok := readDiaryInput(w, r)
	if !ok {
		return
	}

	input := models.Diary{Title: title, Content: content}
	if entryDate != nil {
		input.EntryDate = *entryDate
	}

	d, err := s.diaries.Create(r.Context(), input, user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Diary entry created successfully!",
		"redirect": "/diary/dashboard",
		"diary":    toDiaryResponse(d),
	})
}

// diaryID returns the {id} path value, or "" when it cannot name an entry.
func diaryID(r *http.Request) string {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

func (s *Server) findOwned(w http.ResponseWriter, r *http.Request, user *models.User, action string) (*models.Diary, bool) {
	notFound := "Diary not found or you don't have permission to " + action + " it"

	id := diaryID(r)
	if id == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", notFound)
		return nil, false
	}

	d, err := s.diaries.FindByIDForOwner(r.Context(), id, user)
	if err != nil {
		s.serverError(w, r, err)
		return nil, false
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", notFound)
		return nil, false
	}
	return d, true
}

func (s *Server) handleViewDiary(w http.ResponseWriter, r *http.Request, user *models.User) {
	d, ok := s.findOwned(w, r, user, "view")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.UserName,
		"diary":    toDiaryResponse(d),
	})
}

func (s *Server) handleEditDiaryForm(w http.ResponseWriter, r *http.Request, user *models.User) {
	d, ok := s.findOwned(w, r, user, "edit")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.UserName,
		"is_edit":  true,
		"diary":    toDiaryResponse(d),
	})
}

func (s *Server) handleUpdateDiary(w http.ResponseWriter, r *http.Request, user *models.User) {
	const notFound = "Diary not found or you don't have permission to edit it"

	id := diaryID(r)
	if id == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", notFound)
		return
	}

	title, content, entryDate, ok := readDiaryInput(w, r)
	if !ok {
		return
	}

	d, err := s.diaries.Update(r.Context(), id, models.DiaryChanges{
		Title:     title,
		Content:   content,
		EntryDate: entryDate,
	}, user)
	if err != nil {
		if errors.Is(err, common.ErrNotFoundOrForbidden) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", notFound)
		} else {
			s.serverError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Diary entry updated successfully!",
		"redirect": "/diary/dashboard",
		"diary":    toDiaryResponse(d),
	})
}

func (s *Server) handleDeleteDiary(w http.ResponseWriter, r *http.Request, user *models.User) {
	const notFound = "Diary not found or you don't have permission to delete it"

	id := diaryID(r)
	if id == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", notFound)
		return
	}

	if err := s.diaries.Delete(r.Context(), id, user); err != nil {
		if errors.Is(err, common.ErrNotFoundOrForbidden) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", notFound)
		} else {
			s.serverError(w, r, err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Diary entry deleted successfully!", "/diary/dashboard")
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, user *models.User) {
	if s.exports == nil || !s.exports.Enabled() {
		writeError(w, http.StatusNotFound, "EXPORT_DISABLED", "export disabled")
		return
	}

	exp, err := s.exports.Export(r.Context(), user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Diary exported successfully!",
		"export":  exp,
	})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request, user *models.User) {
	if s.exports == nil || !s.exports.Enabled() {
		writeError(w, http.StatusNotFound, "EXPORT_DISABLED", "export disabled")
		return
	}

	items, err := s.exports.List(r.Context(), user, exportHistoryLimit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": items})
}
