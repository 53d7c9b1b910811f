package devserver

import (
	"finance-tracker-client/internal/model"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	withoutCategory = "Без категории"
	withoutTag      = "Без тегов"
)

type group struct {
	key   string
	label string
}

// Statistics godoc
// @Summary Дерево агрегатов за период
// @Description Уровни дерева задаются groupBy: type, category, tag, month
// @Tags Statistics
// @Accept json
// @Produce json
// @Param request body model.StatisticsRequest true "Период и уровни группировки"
// @Success 200 {object} model.StatisticsNode
// @Failure 400 {object} model.Envelope[any]
// @Security ApiKeyAuth
// @Router /api/statistics [post]
func (s *Server) Statistics(w http.ResponseWriter, r *http.Request) {
	var req model.StatisticsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	for _, level := range req.GroupBy {
		switch level {
		case model.GroupByType, model.GroupByCategory, model.GroupByTag, model.GroupByMonth:
		default:
			sendErrorResponse(w, http.StatusBadRequest, "statistics.unknown-group")
			return
		}
	}
	if !req.To.IsZero() && req.To.Before(req.From) {
		sendErrorResponse(w, http.StatusBadRequest, "statistics.invalid-period")
		return
	}

	s.state.mu.Lock()
	l, _ := s.currentLedger(r)
	root := &model.StatisticsNode{Key: "total"}
	aggregate(root, l.entriesBetween(truncateDay(req.From), truncateDay(req.To)), req.GroupBy, l)
	s.state.mu.Unlock()

	writeData(w, http.StatusOK, root)
}

// aggregate : итоги узла по всем его записям, дети по первому уровню группировки
func aggregate(node *model.StatisticsNode, entries []model.Entry, levels []string, l *ledger) {
	node.Income, node.Cost = decimal.Zero, decimal.Zero
	for _, entry := range entries {
		if entry.Type == model.EntryTypeIncome {
			node.Income = node.Income.Add(entry.Amount)
		} else {
			node.Cost = node.Cost.Add(entry.Amount)
		}
		node.Count++
	}

	if len(levels) == 0 || len(entries) == 0 {
		return
	}

	buckets := make(map[string][]model.Entry)
	labels := make(map[string]string)
	for _, entry := range entries {
		for _, g := range groupsOf(entry, levels[0], l) {
			buckets[g.key] = append(buckets[g.key], entry)
			labels[g.key] = g.label
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return labels[keys[i]] < labels[keys[j]] })

	for _, key := range keys {
		child := &model.StatisticsNode{Key: key, Label: labels[key]}
		aggregate(child, buckets[key], levels[1:], l)
		node.Children = append(node.Children, child)
	}
}

// groupsOf : запись с несколькими тегами попадает в несколько групп
func groupsOf(entry model.Entry, level string, l *ledger) []group {
	switch level {
	case model.GroupByType:
		return []group{{key: string(entry.Type), label: string(entry.Type)}}
	case model.GroupByCategory:
		if entry.CategoryID != nil {
			if category, ok := l.categories[*entry.CategoryID]; ok {
				return []group{{key: category.ID, label: category.Name}}
			}
		}
		return []group{{key: "none", label: withoutCategory}}
	case model.GroupByTag:
		var groups []group
		for _, tagID := range entry.TagIDs {
			if tag, ok := l.tags[tagID]; ok {
				groups = append(groups, group{key: tag.ID, label: tag.Name})
			}
		}
		if len(groups) == 0 {
			groups = append(groups, group{key: "none", label: withoutTag})
		}
		return groups
	default:
		month := entry.Date.UTC().Format("2006-01")
		return []group{{key: month, label: month}}
	}
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(24 * time.Hour)
}
