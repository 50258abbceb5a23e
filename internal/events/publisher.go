// Package events pushes conversation updates onto the real-time channel.
// The channel itself (consumers, client fanout) is an external collaborator;
// what matters here is that recipient filtering goes through the exact same
// access predicate as interactive search.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"inboxsearch/internal/access"
	"inboxsearch/internal/models"
)

// ConversationEvent is the payload published per recipient role queue.
type ConversationEvent struct {
	ID             string    `json:"id"`
	Event          string    `json:"event"`
	ConversationID string    `json:"conversationId"`
	BusinessPhone  string    `json:"businessPhoneId"`
	Recipients     []string  `json:"recipients"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher delivers conversation updates to RabbitMQ, one queue per
// recipient role. Disabled (every publish is a no-op) when no broker URL is
// configured.
type Publisher struct {
	mu      sync.Mutex
	channel *amqp091.Channel
	conn    *amqp091.Connection
	enabled bool
	prefix  string
	queue   string
	policy  *access.Policy
}

// NewPublisher dials the broker. An empty URL disables publishing.
func NewPublisher(url, queue, prefix string, policy *access.Policy) *Publisher {
	p := &Publisher{prefix: prefix, queue: queue, policy: policy}
	if url == "" {
		log.Info().Msg("RABBITMQ_URL is not set. Event publishing disabled.")
		return p
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		log.Error().Err(err).Msg("Could not connect to RabbitMQ")
		return p
	}
	channel, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Could not open RabbitMQ channel")
		conn.Close()
		return p
	}

	p.conn = conn
	p.channel = channel
	p.enabled = true
	log.Info().Str("queue", queue).Str("prefix", prefix).Msg("RabbitMQ connection established")
	return p
}

// Enabled reports whether a broker connection is live.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Close tears down the broker connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// VisibleRecipients filters candidate recipients through the access policy.
// This is the same predicate the search path applies; a caller who cannot
// search a conversation never receives its live updates either.
func (p *Publisher) VisibleRecipients(conv *models.Conversation, candidates []models.Caller) []models.Caller {
	visible := make([]models.Caller, 0, len(candidates))
	for _, caller := range candidates {
		scope, err := p.policy.ScopeFor(caller, nil)
		if err != nil {
			continue
		}
		if scope.CanSee(conv) {
			visible = append(visible, caller)
		}
	}
	return visible
}

// ConversationUpdated publishes an update for conv to every candidate
// recipient the access policy admits, grouped into one message per role
// queue.
func (p *Publisher) ConversationUpdated(ctx context.Context, conv *models.Conversation, candidates []models.Caller) error {
	visible := p.VisibleRecipients(conv, candidates)
	if len(visible) == 0 || !p.enabled {
		return nil
	}

	byRole := make(map[models.Role][]string)
	for _, caller := range visible {
		byRole[caller.Role] = append(byRole[caller.Role], caller.ID)
	}

	for role, ids := range byRole {
		event := ConversationEvent{
			ID:             uuid.NewString(),
			Event:          "conversation_updated",
			ConversationID: conv.ID,
			BusinessPhone:  conv.BusinessPhoneID,
			Recipients:     ids,
			Timestamp:      time.Now(),
		}
		body, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if err := p.publish(ctx, p.prefix+"_"+string(role), body); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Declare queue (idempotent)
	if _, err := p.channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("Could not declare RabbitMQ queue")
		return err
	}
	err := p.channel.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("Could not publish to RabbitMQ")
		return err
	}
	log.Debug().Str("queue", queueName).Msg("Published event to RabbitMQ")
	return nil
}
