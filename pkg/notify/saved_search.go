package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billister-api/criteria"
	"billister-api/metrics"
	"billister-api/models"
	"billister-api/pkg/events"

	"github.com/google/uuid"
)

// MaxSavedSearchScan bounds how many of the most recent saved searches are
// checked against each new listing.
// TODO: index saved searches by make/fuel type so new listings stop scanning the newest N.
const MaxSavedSearchScan = 2000

const matchTitle = "Ny bil matcher din søgning"

// SavedSearchSource lists the most recently created saved searches.
type SavedSearchSource interface {
	ListRecent(ctx context.Context, limit int) ([]*models.SavedSearch, error)
}

// MatchEventSink persists match events in one batch.
type MatchEventSink interface {
	AppendMatchEvents(ctx context.Context, events []models.MatchEvent) error
}

// SavedSearchNotifier records a match event for every saved search whose
// criteria accept a newly created listing.
type SavedSearchNotifier struct {
	searches  SavedSearchSource
	sink      MatchEventSink
	evaluator criteria.Evaluator
	realtime  Notifier
	publisher Publisher
	now       func() time.Time
}

type Option func(*SavedSearchNotifier)

// WithRealtime pushes each recorded match to the owner's websocket connections.
func WithRealtime(n Notifier) Option {
	return func(s *SavedSearchNotifier) { s.realtime = n }
}

// WithPublisher forwards recorded matches to the push delivery pipeline.
func WithPublisher(p Publisher) Option {
	return func(s *SavedSearchNotifier) { s.publisher = p }
}

func WithEvaluator(e criteria.Evaluator) Option {
	return func(s *SavedSearchNotifier) { s.evaluator = e }
}

func NewSavedSearchNotifier(searches SavedSearchSource, sink MatchEventSink, opts ...Option) *SavedSearchNotifier {
	n := &SavedSearchNotifier{
		searches:  searches,
		sink:      sink,
		evaluator: criteria.Engine{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OnNewListing checks the listing against the saved searches and writes the
// resulting match events in a single batch. It returns the number of events
// written. Saved searches with undecodable criteria are skipped. A cancelled
// context aborts the scan before anything is written.
func (n *SavedSearchNotifier) OnNewListing(ctx context.Context, listing *models.Listing) (int, error) {
	if listing == nil {
		return 0, nil
	}
	searches, err := n.searches.ListRecent(ctx, MaxSavedSearchScan)
	if err != nil {
		return 0, fmt.Errorf("list saved searches: %w", err)
	}

	view := listing.CriteriaView()
	body := matchBody(listing)
	createdAt := n.now().UTC()

	var matched []models.MatchEvent
	for _, s := range searches {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c, ok := criteria.DecodeString(s.CriteriaJSON)
		if !ok {
			metrics.SavedSearchSkippedTotal.Inc()
			slog.Warn("skipping saved search with undecodable criteria", "savedSearchId", s.ID)
			continue
		}
		if !n.evaluator.Matches(c, view) {
			continue
		}
		matched = append(matched, models.MatchEvent{
			ID:            uuid.New(),
			UserID:        s.UserID,
			SavedSearchID: s.ID,
			ListingID:     listing.ID,
			Title:         matchTitle,
			Body:          body,
			CreatedAt:     createdAt,
		})
	}

	if len(matched) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := n.sink.AppendMatchEvents(ctx, matched); err != nil {
		return 0, fmt.Errorf("append match events: %w", err)
	}
	metrics.SavedSearchMatchesTotal.Add(float64(len(matched)))

	n.fanOut(ctx, matched)
	return len(matched), nil
}

func (n *SavedSearchNotifier) fanOut(ctx context.Context, matched []models.MatchEvent) {
	for _, m := range matched {
		ev := events.SavedSearchMatched{
			Type:          events.TypeSavedSearchMatched,
			EventID:       m.ID,
			UserID:        m.UserID,
			SavedSearchID: m.SavedSearchID,
			ListingID:     m.ListingID,
			Title:         m.Title,
			Body:          m.Body,
		}
		if n.realtime != nil {
			n.realtime.NotifyUser(m.UserID, ev)
		}
		if n.publisher != nil {
			if err := n.publisher.Publish(ctx, ev); err != nil {
				slog.Error("failed to publish match event", "eventId", m.ID, "err", err)
			}
		}
	}
}

func matchBody(l *models.Listing) string {
	return fmt.Sprintf("%s %s er netop blevet oprettet.", l.Make, l.Model)
}
