package api

import (
	"context"
	"encoding/json"
	"finance-tracker-client/internal/model"
	"net/http"
	"net/url"
	"time"
)

const dateLayout = "2006-01-02"

type EntryAPI struct {
	client *Client
}

func NewEntryAPI(client *Client) *EntryAPI {
	return &EntryAPI{client: client}
}

// List : записи за период, границы включительно
func (a *EntryAPI) List(ctx context.Context, from, to time.Time) ([]model.Entry, error) {
	query := url.Values{}
	if !from.IsZero() {
		query.Set("from", from.Format(dateLayout))
	}
	if !to.IsZero() {
		query.Set("to", to.Format(dateLayout))
	}
	return call[[]model.Entry](ctx, a.client, http.MethodGet, "/entry/all", query, nil)
}

func (a *EntryAPI) Create(ctx context.Context, entry model.Entry) (*model.Entry, error) {
	return call[*model.Entry](ctx, a.client, http.MethodPost, "/entry", nil, entry)
}

func (a *EntryAPI) Update(ctx context.Context, entry model.Entry) (*model.Entry, error) {
	return call[*model.Entry](ctx, a.client, http.MethodPut, "/entry/"+url.PathEscape(entry.ID), nil, entry)
}

func (a *EntryAPI) Delete(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, a.client, http.MethodDelete, "/entry/"+url.PathEscape(id), nil, nil)
	return err
}
