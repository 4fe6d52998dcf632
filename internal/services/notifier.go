package services

// Notifier pushes live updates to connected browsers. Channels are
// "user:{id}" and "session:{id}".
type Notifier interface {
	Notify(channel, action string, payload interface{})
}

// UserChannel is the live-update channel for a user.
func UserChannel(userID string) string { return "user:" + userID }

// SessionChannel is the live-update channel for a navigation session.
func SessionChannel(sessionID string) string { return "session:" + sessionID }

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}
