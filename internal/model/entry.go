package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeIncome EntryType = "INCOME"
	EntryTypeCost   EntryType = "COST"
)

func (t EntryType) Valid() bool {
	return t == EntryTypeIncome || t == EntryTypeCost
}

// Entry : запись о доходе или расходе
type Entry struct {
	ID          string          `json:"id,omitempty"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	CategoryID  *string         `json:"categoryId,omitempty"`
	TagIDs      []string        `json:"tagIds,omitempty"`
}

type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Category struct {
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}
