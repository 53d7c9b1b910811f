package api

import (
	"context"
	"finance-tracker-client/internal/model"
	"net/http"
)

type StatisticsAPI struct {
	client *Client
}

func NewStatisticsAPI(client *Client) *StatisticsAPI {
	return &StatisticsAPI{client: client}
}

func (a *StatisticsAPI) Generate(ctx context.Context, request model.StatisticsRequest) (*model.StatisticsNode, error) {
	return call[*model.StatisticsNode](ctx, a.client, http.MethodPost, "/statistics", nil, request)
}
