package nats

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/solaracontrol/mission-control/internal/model"
)

const (
	// StreamName is the name of the mission control stream.
	StreamName = "MISSION_CONTROL"

	// SubjectPrefix is the prefix for all mission control subjects.
	SubjectPrefix = "mc"

	fetchBatch     = 256
	fetchMaxWait   = 2 * time.Second
	consumerIdleGC = 30 * time.Second
)

// TurnRecord is the JetStream payload of one conversation turn.
type TurnRecord struct {
	VisitorID string         `json:"visitor_id"`
	Agent     string         `json:"agent"`
	Role      model.TurnRole `json:"role"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// EnsureStream ensures the mission control stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	_, err := m.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    20 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Conversation history and telemetry events",
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Token encodes an identifier as a single subject token. Identifiers made of
// letters, digits, '-' and '_' are kept as is; anything else is base64url
// encoded behind a '~' marker so distinct identifiers never collide.
func Token(id string) string {
	if id != "" && isPlainToken(id) {
		return id
	}
	return "~" + base64.RawURLEncoding.EncodeToString([]byte(id))
}

func isPlainToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// TurnSubject returns the subject of a conversation turn.
func TurnSubject(visitorID, agent string, role model.TurnRole) string {
	return strings.Join([]string{SubjectPrefix, "history", Token(visitorID), Token(agent), string(role)}, ".")
}

// HistoryFilter returns the filter subject for all turns of a (visitor, agent) pair.
func HistoryFilter(visitorID, agent string) string {
	return strings.Join([]string{SubjectPrefix, "history", Token(visitorID), Token(agent), "*"}, ".")
}

// TelemetrySubject returns the subject of a telemetry event.
func TelemetrySubject(eventType model.EventType) string {
	return strings.Join([]string{SubjectPrefix, "telemetry", Token(string(eventType))}, ".")
}

// PublishTurn appends a conversation turn to the stream.
func (m *StreamManager) PublishTurn(ctx context.Context, rec TurnRecord) (uint64, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn: %w", err)
	}

	ack, err := m.js.Publish(ctx, TurnSubject(rec.VisitorID, rec.Agent, rec.Role), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn: %w", err)
	}

	return ack.Sequence, nil
}

// PublishTelemetry publishes a telemetry event. The event id doubles as the
// JetStream message id, so republishing the same event is deduplicated.
func (m *StreamManager) PublishTelemetry(ctx context.Context, event model.TelemetryEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	var opts []jetstream.PublishOpt
	if event.ID != "" {
		opts = append(opts, jetstream.WithMsgID(event.ID))
	}

	ack, err := m.js.Publish(ctx, TelemetrySubject(event.Type), data, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

// GetTurns returns the most recent limit turns of a (visitor, agent) pair,
// oldest first. A limit <= 0 returns every stored turn.
func (m *StreamManager) GetTurns(ctx context.Context, visitorID, agent string, limit int) ([]TurnRecord, error) {
	consumer, err := m.js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     HistoryFilter(visitorID, agent),
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		InactiveThreshold: consumerIdleGC,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	info := consumer.CachedInfo()
	defer func() {
		// Ephemeral consumers are also reaped by the server after consumerIdleGC.
		_ = m.js.DeleteConsumer(context.WithoutCancel(ctx), StreamName, info.Name)
	}()

	pending := int(info.NumPending)
	if pending == 0 {
		return []TurnRecord{}, nil
	}

	window := newTail(limit)
	for received := 0; received < pending; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := consumer.Fetch(min(fetchBatch, pending-received), jetstream.FetchMaxWait(fetchMaxWait))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch turns: %w", err)
		}

		n := 0
		for msg := range batch.Messages() {
			n++
			var rec TurnRecord
			if err := json.Unmarshal(msg.Data(), &rec); err != nil {
				continue
			}
			if meta, err := msg.Metadata(); err == nil && rec.CreatedAt.IsZero() {
				rec.CreatedAt = meta.Timestamp
			}
			window.push(rec)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
			return nil, fmt.Errorf("batch error: %w", err)
		}
		if n == 0 {
			break
		}
		received += n
	}

	return window.items(), nil
}

// tail keeps the last n pushed records in a ring buffer.
type tail struct {
	buf   []TurnRecord
	limit int
	next  int
	full  bool
}

func newTail(limit int) *tail {
	return &tail{limit: limit}
}

func (t *tail) push(rec TurnRecord) {
	if t.limit <= 0 {
		t.buf = append(t.buf, rec)
		return
	}
	if len(t.buf) < t.limit {
		t.buf = append(t.buf, rec)
		return
	}
	t.buf[t.next] = rec
	t.next = (t.next + 1) % t.limit
	t.full = true
}

func (t *tail) items() []TurnRecord {
	if !t.full {
		return append([]TurnRecord{}, t.buf...)
	}
	out := make([]TurnRecord, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}
