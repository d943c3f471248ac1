package store

import (
	"context"
	"time"

	"luna/internal/conversation"
	"luna/internal/logging"
)

// Recorder adapts History to the session observer interface, persisting every
// appended message. Write failures are logged and dropped: history is a
// convenience, and a disk problem must not take the conversation down.
type Recorder struct {
	history *History
}

// NewRecorder wraps a history store as an observer.
func NewRecorder(h *History) *Recorder {
	return &Recorder{history: h}
}

// MessageAppended implements conversation.Observer.
func (r *Recorder) MessageAppended(sessionID string, m conversation.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.history.Append(ctx, MessageRecord{
		SessionID:    sessionID,
		Seq:          m.ID,
		Role:         string(m.Role),
		Content:      m.Content,
		RetryContent: m.RetryContent,
		CreatedAt:    m.CreatedAt,
	})
	if err != nil {
		logging.Get(logging.CategoryStore).Warnw("history write failed",
			"session", sessionID, "seq", m.ID, "error", err)
	}
}

// Restore converts a session's stored transcript back into messages suitable
// for conversation.Session.Restore.
func (r *Recorder) Restore(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	recs, err := r.history.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, conversation.Message{
			Role:      conversation.Role(rec.Role),
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
		})
	}
	return out, nil
}
