package history

import (
	"context"
	"time"

	"github.com/solaracontrol/mission-control/internal/model"
	natsclient "github.com/solaracontrol/mission-control/internal/nats"
	"github.com/solaracontrol/mission-control/pkg/metrics"
)

// TurnStream is the JetStream side of the history store.
type TurnStream interface {
	PublishTurn(ctx context.Context, rec natsclient.TurnRecord) (uint64, error)
	GetTurns(ctx context.Context, visitorID, agent string, limit int) ([]natsclient.TurnRecord, error)
}

// JetStreamStore keeps conversation turns on the mission control stream.
type JetStreamStore struct {
	stream TurnStream
	now    func() time.Time
}

// NewJetStreamStore creates a JetStream-backed history store.
func NewJetStreamStore(stream TurnStream) *JetStreamStore {
	return &JetStreamStore{stream: stream, now: time.Now}
}

// GetHistory returns the most recent limit turns, oldest first.
func (s *JetStreamStore) GetHistory(ctx context.Context, visitorID, agentSlug string, limit int) ([]model.ConversationTurn, error) {
	recs, err := s.stream.GetTurns(ctx, visitorID, agentSlug, limit)
	if err != nil {
		return nil, err
	}

	turns := make([]model.ConversationTurn, len(recs))
	for i, r := range recs {
		turns[i] = model.ConversationTurn{Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt}
	}
	return turns, nil
}

// AppendTurn publishes one turn.
func (s *JetStreamStore) AppendTurn(ctx context.Context, visitorID, agentSlug string, role model.TurnRole, content string) error {
	if err := validateTurn(visitorID, agentSlug, role); err != nil {
		return err
	}

	_, err := s.stream.PublishTurn(ctx, natsclient.TurnRecord{
		VisitorID: visitorID,
		Agent:     agentSlug,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	metrics.HistoryTurnsTotal.WithLabelValues(agentSlug, string(role)).Inc()
	return nil
}
