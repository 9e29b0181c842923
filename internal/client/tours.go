package client

import (
	"context"
	"errors"
	"net/url"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// GetTour fetches a tour with its dates and add-ons by id or slug
func (c *Client) GetTour(ctx context.Context, idOrSlug string) (*domain.Tour, error) {
	var tour domain.Tour
	if err := c.get(ctx, "/tours/"+url.PathEscape(idOrSlug), &tour); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.ErrTourNotFound
		}
		return nil, err
	}
	return &tour, nil
}
