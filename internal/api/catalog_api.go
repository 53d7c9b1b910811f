package api

import (
	"context"
	"encoding/json"
	"finance-tracker-client/internal/model"
	"net/http"
	"net/url"
)

type TagAPI struct {
	client *Client
}

func NewTagAPI(client *Client) *TagAPI {
	return &TagAPI{client: client}
}

func (a *TagAPI) List(ctx context.Context) ([]model.Tag, error) {
	return call[[]model.Tag](ctx, a.client, http.MethodGet, "/tag/all", nil, nil)
}

func (a *TagAPI) Create(ctx context.Context, name string) (*model.Tag, error) {
	return call[*model.Tag](ctx, a.client, http.MethodPost, "/tag", nil, model.Tag{Name: name})
}

func (a *TagAPI) Delete(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, a.client, http.MethodDelete, "/tag/"+url.PathEscape(id), nil, nil)
	return err
}

type CategoryAPI struct {
	client *Client
}

func NewCategoryAPI(client *Client) *CategoryAPI {
	return &CategoryAPI{client: client}
}

func (a *CategoryAPI) List(ctx context.Context) ([]model.Category, error) {
	return call[[]model.Category](ctx, a.client, http.MethodGet, "/category/all", nil, nil)
}

func (a *CategoryAPI) Create(ctx context.Context, category model.Category) (*model.Category, error) {
	return call[*model.Category](ctx, a.client, http.MethodPost, "/category", nil, category)
}
