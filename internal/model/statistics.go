package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Группировки, которые понимает сервер
const (
	GroupByType     = "type"
	GroupByCategory = "category"
	GroupByTag      = "tag"
	GroupByMonth    = "month"
)

type StatisticsRequest struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	GroupBy []string  `json:"groupBy"`
}

// StatisticsNode : узел дерева агрегатов, дети - следующий уровень группировки
type StatisticsNode struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	Income   decimal.Decimal   `json:"income"`
	Cost     decimal.Decimal   `json:"cost"`
	Count    int               `json:"count"`
	Children []*StatisticsNode `json:"children,omitempty"`
}

func (n *StatisticsNode) Balance() decimal.Decimal {
	return n.Income.Sub(n.Cost)
}
