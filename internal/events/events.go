// Package events publishes import milestones to redis pub/sub so other
// services (bots, webhook fanout) can react to them. Publishing is fire and
// forget: a down redis never fails an import.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"encore/internal/logging"
)

const (
	TypeClassAchieved     = "class-achieved"
	TypeClassImproved     = "class-improved"
	TypeMilestoneAchieved = "milestone-achieved"
	TypeGoalAchieved      = "goal-achieved"
)

// Event is the published envelope.
type Event struct {
	Type    string `json:"type"`
	UserID  int    `json:"userID"`
	Payload any    `json:"payload"`
}

// Publisher fans events out to a redis channel. A Publisher constructed
// without an address is a no-op, which is how single-box deployments run.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewPublisher(addr, channel string, logger *slog.Logger) *Publisher {
	p := &Publisher{channel: channel, logger: logging.WithSubject(logger, "events")}
	if addr != "" {
		p.client = redis.NewClient(&redis.Options{Addr: addr})
	}
	return p
}

func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Publish sends one event. Failures are logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, eventType string, userID int, payload any) {
	if p.client == nil {
		return
	}
	body, err := json.Marshal(Event{Type: eventType, UserID: userID, Payload: payload})
	if err != nil {
		p.logger.Warn("event marshal failed", "type", eventType, "error", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		p.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
