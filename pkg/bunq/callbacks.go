package bunq

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// callbackService implements the CallbackService interface
type callbackService struct {
	client *Client
}

const callbackPath = "/user/notification-filter-url"

// List retrieves all registered notification filters
func (s *callbackService) List(ctx context.Context) ([]*NotificationFilter, error) {
	resp, err := s.client.transport.list(ctx, callbackPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notification filters")
	}

	var filters []*NotificationFilter
	for _, item := range resp.Response {
		raw, ok := item["NotificationFilterUrl"]
		if !ok {
			continue
		}
		var filter NotificationFilter
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, errors.Wrap(err, "failed to parse notification filter")
		}
		filters = append(filters, &filter)
	}
	return filters, nil
}

// Ensure registers the callback URL for the category unless an equivalent
// filter already exists. The API replaces the whole filter list on write, so
// existing filters are carried over.
func (s *callbackService) Ensure(ctx context.Context, callbackURL, category string) error {
	filters, err := s.List(ctx)
	if err != nil {
		return err
	}

	for _, filter := range filters {
		if filter.Category == category && strings.HasSuffix(filter.NotificationTarget, callbackURL) {
			return nil
		}
	}

	filters = append(filters, &NotificationFilter{
		Category:           category,
		NotificationTarget: callbackURL,
	})

	payload := map[string]interface{}{"notification_filters": filters}
	if err := s.client.transport.post(ctx, callbackPath, payload); err != nil {
		return errors.Wrap(err, "failed to register notification filter")
	}
	return nil
}
