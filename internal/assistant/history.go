package assistant

import (
	"time"

	"calibtrack/internal/localcache"
)

// maxHistory bounds the persisted chat history.
const maxHistory = 200

// History is the persisted conversation.
type History struct {
	store *localcache.Store[[]Message]
	now   func() time.Time
}

func NewHistory(store *localcache.Store[[]Message]) *History {
	return &History{store: store, now: time.Now}
}

// Messages returns the conversation, starting with the welcome message when
// nothing was stored.
func (h *History) Messages() []Message {
	msgs := h.store.Load()
	if len(msgs) == 0 {
		return []Message{Welcome(h.now())}
	}
	return msgs
}

// Append adds msgs, trimming the oldest beyond the cap.
func (h *History) Append(msgs ...Message) ([]Message, error) {
	return h.store.Update(func(cur []Message) []Message {
		if len(cur) == 0 {
			cur = []Message{Welcome(h.now())}
		}
		cur = append(cur, msgs...)
		if len(cur) > maxHistory {
			cur = cur[len(cur)-maxHistory:]
		}
		return cur
	})
}

// Clear resets the conversation to the welcome message.
func (h *History) Clear() error {
	return h.store.Clear()
}
