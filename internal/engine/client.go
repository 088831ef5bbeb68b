package engine

import (
	"context"

	"gigdesk/internal/domain"
	"gigdesk/internal/engine/auth"
)

const recentBidsLimit = 10

func (e Engine) requireClient(ctx context.Context, userID string) error {
	return auth.Service{DB: e.DB}.RequireRole(ctx, userID, "client")
}

// ClientStats summarizes a client's hiring activity.
func (e Engine) ClientStats(ctx context.Context, userID string) (domain.ClientStats, error) {
	if err := e.requireClient(ctx, userID); err != nil {
		return domain.ClientStats{}, err
	}
	return e.Repo.ClientStats(ctx, userID)
}

// RecentBids returns the newest bids on the client's jobs.
func (e Engine) RecentBids(ctx context.Context, userID string) ([]domain.Bid, error) {
	if err := e.requireClient(ctx, userID); err != nil {
		return nil, err
	}
	return e.Repo.RecentClientBids(ctx, userID, recentBidsLimit)
}
