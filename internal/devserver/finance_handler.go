package devserver

import (
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/security"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// currentLedger : данные пользователя из claims запроса, вызывающий держит s.state.mu
func (s *Server) currentLedger(r *http.Request) (*ledger, bool) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		return nil, false
	}
	return s.state.ledgerOf(claims.Username), true
}

// ListEntries godoc
// @Summary Записи за период
// @Tags Entry
// @Produce json
// @Param from query string false "Начало периода (YYYY-MM-DD)"
// @Param to query string false "Конец периода (YYYY-MM-DD)"
// @Success 200 {array} model.Entry
// @Failure 401 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/entry/all [get]
func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if !ok {
		sendErrorResponse(w, http.StatusBadRequest, "entry.invalid-period")
		return
	}

	s.state.mu.Lock()
	l, authorized := s.currentLedger(r)
	var entries []model.Entry
	if authorized {
		entries = l.entriesBetween(from, to)
	}
	s.state.mu.Unlock()

	if !authorized {
		sendErrorResponse(w, http.StatusUnauthorized, "auth.unauthorized")
		return
	}
	writeData(w, http.StatusOK, entries)
}

// CreateEntry godoc
// @Summary Новая запись
// @Tags Entry
// @Accept json
// @Produce json
// @Param entry body model.Entry true "Запись"
// @Success 201 {object} model.Entry
// @Failure 400 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/entry [post]
func (s *Server) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var entry model.Entry
	if err := decodeJSON(w, r, &entry); err != nil {
		return
	}
	entry.ID = uuid.NewString()

	s.saveEntry(w, r, entry, http.StatusCreated)
}

// UpdateEntry godoc
// @Summary Изменение записи
// @Tags Entry
// @Accept json
// @Produce json
// @Param id path string true "ID записи"
// @Param entry body model.Entry true "Запись"
// @Success 200 {object} model.Entry
// @Failure 404 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/entry/{id} [put]
func (s *Server) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var entry model.Entry
	if err := decodeJSON(w, r, &entry); err != nil {
		return
	}
	entry.ID = chi.URLParam(r, "id")

	s.state.mu.Lock()
	l, authorized := s.currentLedger(r)
	exists := false
	if authorized {
		_, exists = l.entries[entry.ID]
	}
	s.state.mu.Unlock()

	if !exists {
		sendErrorResponse(w, http.StatusNotFound, "entry.not-found")
		return
	}

	s.saveEntry(w, r, entry, http.StatusOK)
}

func (s *Server) saveEntry(w http.ResponseWriter, r *http.Request, entry model.Entry, statusCode int) {
	if key := validateEntry(entry); key != "" {
		sendErrorResponse(w, http.StatusBadRequest, key)
		return
	}
	entry.Currency = strings.ToUpper(entry.Currency)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	l, authorized := s.currentLedger(r)
	if !authorized {
		sendErrorResponse(w, http.StatusUnauthorized, "auth.unauthorized")
		return
	}

	if entry.CategoryID != nil {
		if _, ok := l.categories[*entry.CategoryID]; !ok {
			sendErrorResponse(w, http.StatusBadRequest, "entry.unknown-category")
			return
		}
	}
	for _, tagID := range entry.TagIDs {
		if _, ok := l.tags[tagID]; !ok {
			sendErrorResponse(w, http.StatusBadRequest, "entry.unknown-tag")
			return
		}
	}

	l.entries[entry.ID] = entry
	writeData(w, statusCode, entry)
}

// DeleteEntry godoc
// @Summary Удаление записи
// @Tags Entry
// @Produce json
// @Param id path string true "ID записи"
// @Success 200 {object} model.Envelope[any]
// @Failure 404 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/entry/{id} [delete]
func (s *Server) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.state.mu.Lock()
	l, authorized := s.currentLedger(r)
	exists := false
	if authorized {
		_, exists = l.entries[id]
		delete(l.entries, id)
	}
	s.state.mu.Unlock()

	if !exists {
		sendErrorResponse(w, http.StatusNotFound, "entry.not-found")
		return
	}
	writeData(w, http.StatusOK, nil)
}

// ListTags godoc
// @Summary Теги пользователя
// @Tags Tag
// @Produce json
// @Success 200 {array} model.Tag
// @Security ApiKeyAuth
// @Router /api/tag/all [get]
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	l, _ := s.currentLedger(r)
	tags := make([]model.Tag, 0, len(l.tags))
	for _, tag := range l.tags {
		tags = append(tags, tag)
	}
	s.state.mu.Unlock()

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	writeData(w, http.StatusOK, tags)
}

// CreateTag godoc
// @Summary Новый тег
// @Tags Tag
// @Accept json
// @Produce json
// @Param tag body model.Tag true "Тег"
// @Success 201 {object} model.Tag
// @Failure 409 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/tag [post]
func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request) {
	var tag model.Tag
	if err := decodeJSON(w, r, &tag); err != nil {
		return
	}
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		sendErrorResponse(w, http.StatusBadRequest, "tag.name-required")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	l, _ := s.currentLedger(r)
	for _, existing := range l.tags {
		if strings.EqualFold(existing.Name, tag.Name) {
			sendErrorResponse(w, http.StatusConflict, "tag.name-taken")
			return
		}
	}

	tag.ID = uuid.NewString()
	l.tags[tag.ID] = tag
	writeData(w, http.StatusCreated, tag)
}

// DeleteTag : тег удаляется и из всех записей
// @Summary Удаление тега
// @Tags Tag
// @Produce json
// @Param id path string true "ID тега"
// @Success 200 {object} model.Envelope[any]
// @Failure 404 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/tag/{id} [delete]
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.state.mu.Lock()
	l, _ := s.currentLedger(r)
	_, exists := l.tags[id]
	if exists {
		delete(l.tags, id)
		for entryID, entry := range l.entries {
			entry.TagIDs = without(entry.TagIDs, id)
			l.entries[entryID] = entry
		}
	}
	s.state.mu.Unlock()

	if !exists {
		sendErrorResponse(w, http.StatusNotFound, "tag.not-found")
		return
	}
	writeData(w, http.StatusOK, nil)
}

// ListCategories godoc
// @Summary Категории пользователя
// @Tags Category
// @Produce json
// @Success 200 {array} model.Category
// @Security ApiKeyAuth
// @Router /api/category/all [get]
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	l, _ := s.currentLedger(r)
	categories := make([]model.Category, 0, len(l.categories))
	for _, category := range l.categories {
		categories = append(categories, category)
	}
	s.state.mu.Unlock()

	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	writeData(w, http.StatusOK, categories)
}

// CreateCategory godoc
// @Summary Новая категория
// @Tags Category
// @Accept json
// @Produce json
// @Param category body model.Category true "Категория"
// @Success 201 {object} model.Category
// @Failure 400 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/category [post]
func (s *Server) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var category model.Category
	if err := decodeJSON(w, r, &category); err != nil {
		return
	}
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" || !category.Type.Valid() {
		sendErrorResponse(w, http.StatusBadRequest, "category.invalid")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	l, _ := s.currentLedger(r)
	category.ID = uuid.NewString()
	l.categories[category.ID] = category
	writeData(w, http.StatusCreated, category)
}

func validateEntry(entry model.Entry) string {
	switch {
	case !entry.Type.Valid():
		return "entry.invalid-type"
	case !entry.Amount.IsPositive():
		return "entry.invalid-amount"
	case strings.TrimSpace(entry.Currency) == "":
		return "entry.currency-required"
	case entry.Date.IsZero():
		return "entry.date-required"
	}
	return ""
}

// entriesBetween : границы включительно по дням, нулевая граница не ограничивает
func (l *ledger) entriesBetween(from, to time.Time) []model.Entry {
	entries := make([]model.Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		day := entry.Date.UTC().Truncate(24 * time.Hour)
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && day.After(to) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries
}

func parsePeriod(fromRaw, toRaw string) (time.Time, time.Time, bool) {
	var from, to time.Time
	var err error

	if fromRaw != "" {
		if from, err = time.Parse(dateLayout, fromRaw); err != nil {
			return from, to, false
		}
	}
	if toRaw != "" {
		if to, err = time.Parse(dateLayout, toRaw); err != nil {
			return from, to, false
		}
	}
	return from, to, to.IsZero() || !to.Before(from)
}

func without(ids []string, id string) []string {
	result := ids[:0:0]
	for _, current := range ids {
		if current != id {
			result = append(result, current)
		}
	}
	return result
}
