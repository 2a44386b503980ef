package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub - внутрипроцессная рассылка событий подключенным клиентам.
// Медленный клиент теряет события, публикация никогда не блокируется.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
	logger *logrus.Logger
}

func NewHub(buffer int, logger *logrus.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe регистрирует клиента. Функция отписки закрывает канал.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Publish отправляет событие всем текущим подписчикам. Истории нет.
func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.WithFields(logrus.Fields{
			"event":   ev.Type,
			"dropped": dropped,
		}).Warn("Live subscribers are too slow, event dropped")
	}
}

// Subscribers возвращает число подключенных клиентов
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
