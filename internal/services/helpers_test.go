package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/isdelr/airmove-be/internal/database"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) string {
	t.Helper()
	user, err := NewUserService(db).CreateUser(context.Background(), email, "Test User", "password123")
	require.NoError(t, err)
	return user.ID
}

type publishedMessage struct {
	topic   string
	payload interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	err      error
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var topics []string
	for _, m := range p.messages {
		topics = append(topics, m.topic)
	}
	return topics
}

type notification struct {
	channel string
	action  string
	payload interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(channel, action string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{channel: channel, action: action, payload: payload})
}

func (n *recordingNotifier) actions(channel string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var actions []string
	for _, s := range n.sent {
		if s.channel == channel {
			actions = append(actions, s.action)
		}
	}
	return actions
}
