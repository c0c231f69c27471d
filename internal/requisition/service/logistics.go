package service

import (
	"context"
	"sort"
	"time"
)

// Logistics event kinds
const (
	LogisticsKindTransfer    = "TRANSFER"
	LogisticsKindRequisition = "REQUISITION"
)

// LogisticsEvent is one row of the merged outbound-shipment feed: either a
// direct transfer or a fulfilled requisition.
type LogisticsEvent struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status,omitempty"`
	EventTime       time.Time `json:"event_time"`
	DestinationName string    `json:"destination_name"`
	ResponsibleName string    `json:"responsible_name"`
	ItemCount       int       `json:"item_count"`
}

// RecentLogistics merges the latest direct transfers and dispatched or
// received requisitions into a single feed, newest first, truncated to
// limit.
func (s *RequisitionService) RecentLogistics(ctx context.Context, limit int) ([]*LogisticsEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	transfers, err := s.transferRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	requisitions, err := s.reqRepo.ListFulfilledRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	feed := make([]*LogisticsEvent, 0, len(transfers)+len(requisitions))
	for _, t := range transfers {
		feed = append(feed, &LogisticsEvent{
			ID:              t.ID,
			Kind:            LogisticsKindTransfer,
			EventTime:       t.SentAt,
			DestinationName: t.DestinationName,
			ResponsibleName: t.SenderName,
			ItemCount:       t.ItemCount,
		})
	}
	for _, r := range requisitions {
		feed = append(feed, &LogisticsEvent{
			ID:              r.ID,
			Kind:            LogisticsKindRequisition,
			Status:          r.Status,
			EventTime:       r.CreatedAt,
			DestinationName: r.LocationName,
			ResponsibleName: r.RequesterName,
			ItemCount:       r.ItemCount,
		})
	}

	sort.Slice(feed, func(i, j int) bool {
		return feed[i].EventTime.After(feed[j].EventTime)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}
