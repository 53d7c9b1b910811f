package model

// Envelope : общий конверт ответа API
type Envelope[T any] struct {
	Successful     bool   `json:"successful"`
	TranslationKey string `json:"translationKey,omitempty"`
	Data           T      `json:"data"`
}
