// Package store provides read access to the conversation, message and
// archive-state tables. The search engine never writes conversation or
// message rows; the only DDL here exists so fresh databases (and test
// databases) can be brought up.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"inboxsearch/internal/models"
)

// Store is the read-only view of the persistent inbox data used by the
// search engine and the event publisher.
type Store interface {
	Ping(ctx context.Context) error
	BusinessPhones(ctx context.Context) ([]models.BusinessPhone, error)
	Conversations(ctx context.Context, q ConversationQuery) ([]models.Conversation, error)
	ConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	SearchMessages(ctx context.Context, q MessageQuery) ([]models.Message, error)
}

// ConversationQuery narrows the conversation working set before any in-memory
// matching happens. A nil PhoneIDs slice means no phone restriction.
type ConversationQuery struct {
	PhoneIDs        []string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// MessageQuery is a content prefilter over the messages table. Term is
// matched case-insensitively against content and caption; reaction and
// system messages never match.
type MessageQuery struct {
	ConversationIDs []string
	Term            string
	Limit           int
}

// SQLStore implements Store over sqlx. It works against Postgres (lib/pq)
// in production and sqlite (modernc) in tests; queries are written with `?`
// bindvars and passed through Rebind.
type SQLStore struct {
	db *sqlx.DB
}

// Open connects to the database and verifies the connection.
func Open(driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Str("driver", driver).Msg("Database connection established")
	return &SQLStore{db: db}, nil
}

// NewWithDB wraps an existing connection. Tests use this with sqlite.
func NewWithDB(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB exposes the underlying handle for test seeding.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS business_phones (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		area TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		participant_phone TEXT NOT NULL,
		business_phone_id TEXT NOT NULL,
		participant_name TEXT NOT NULL DEFAULT '',
		profile_picture_url TEXT NOT NULL DEFAULT '',
		assigned_agent TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		unread_count INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		is_internal BOOLEAN NOT NULL DEFAULT FALSE,
		is_retarget BOOLEAN NOT NULL DEFAULT FALSE,
		retarget_stage TEXT NOT NULL DEFAULT '',
		last_message_content TEXT NOT NULL DEFAULT '',
		last_message_time TIMESTAMP NOT NULL,
		last_message_direction TEXT NOT NULL DEFAULT '',
		last_message_status TEXT NOT NULL DEFAULT '',
		UNIQUE (participant_phone, business_phone_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'text',
		content TEXT NOT NULL DEFAULT '',
		caption TEXT NOT NULL DEFAULT '',
		media_key TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS archive_state (
		conversation_id TEXT PRIMARY KEY,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// Migrate creates the tables when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("Database migration completed")
	return nil
}

func (s *SQLStore) BusinessPhones(ctx context.Context) ([]models.BusinessPhone, error) {
	var phones []models.BusinessPhone
	err := s.db.SelectContext(ctx, &phones, `SELECT id, label, area FROM business_phones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load business phones: %w", err)
	}
	return phones, nil
}

const conversationColumns = `c.id, c.participant_phone, c.business_phone_id, c.participant_name,
	c.profile_picture_url, c.assigned_agent, c.status, c.unread_count, c.tags, c.notes,
	c.is_internal, c.is_retarget, c.retarget_stage, c.last_message_content,
	c.last_message_time, c.last_message_direction, c.last_message_status,
	COALESCE(a.is_archived, FALSE) AS is_archived`

func (s *SQLStore) Conversations(ctx context.Context, q ConversationQuery) ([]models.Conversation, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + conversationColumns + `
		FROM conversations c
		LEFT JOIN archive_state a ON a.conversation_id = c.id
		WHERE 1=1`)
	var args []interface{}

	if len(q.PhoneIDs) > 0 {
		sb.WriteString(` AND c.business_phone_id IN (?)`)
		args = append(args, q.PhoneIDs)
	}
	if !q.IncludeArchived {
		sb.WriteString(` AND COALESCE(a.is_archived, FALSE) = FALSE AND c.status != ?`)
		args = append(args, string(models.StatusArchived))
	}
	sb.WriteString(` ORDER BY c.last_message_time DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}
	if q.Offset > 0 {
		sb.WriteString(` OFFSET ?`)
		args = append(args, q.Offset)
	}

	query, inArgs, err := sqlx.In(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expand conversation query: %w", err)
	}

	var convs []models.Conversation
	if err := s.db.SelectContext(ctx, &convs, s.db.Rebind(query), inArgs...); err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	return convs, nil
}

func (s *SQLStore) ConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	query := s.db.Rebind(`SELECT ` + conversationColumns + `
		FROM conversations c
		LEFT JOIN archive_state a ON a.conversation_id = c.id
		WHERE c.id = ?`)
	if err := s.db.GetContext(ctx, &conv, query, id); err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return &conv, nil
}

// escapeLike escapes LIKE wildcards so a search term matches literally.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLStore) SearchMessages(ctx context.Context, q MessageQuery) ([]models.Message, error) {
	if len(q.ConversationIDs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, conversation_id, direction, type, content, caption, media_key, timestamp
		FROM messages
		WHERE conversation_id IN (?)
		AND type NOT IN (?, ?)`)
	args := []interface{}{q.ConversationIDs, models.MessageTypeReaction, models.MessageTypeSystem}

	if q.Term != "" {
		sb.WriteString(` AND (LOWER(content) LIKE ? ESCAPE '\' OR LOWER(caption) LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(strings.ToLower(q.Term)) + "%"
		args = append(args, pattern, pattern)
	}
	sb.WriteString(` ORDER BY timestamp DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	query, inArgs, err := sqlx.In(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expand message query: %w", err)
	}

	var msgs []models.Message
	if err := s.db.SelectContext(ctx, &msgs, s.db.Rebind(query), inArgs...); err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return msgs, nil
}
