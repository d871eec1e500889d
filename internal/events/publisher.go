// Package events раздаёт зафиксированные доменные события подписчикам.
package events

import (
	"context"
	"sync"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/repository"
	"github.com/ignatzorin/littypicky-backend/internal/goroutine"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
)

// Fanout передаёт события всем издателям по очереди.
type Fanout []repository.EventPublisher

func (f Fanout) Publish(ctx context.Context, events ...entity.DomainEvent) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, events...)
		}
	}
}

// Async выносит медленного издателя (брокер) из пути запроса. Порядок событий
// сохраняется; при переполнении буфера событие отбрасывается с предупреждением.
type Async struct {
	next  repository.EventPublisher
	queue chan []entity.DomainEvent
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsync(next repository.EventPublisher, buffer int) *Async {
	if buffer <= 0 {
		buffer = 1024
	}
	a := &Async{next: next, queue: make(chan []entity.DomainEvent, buffer)}
	a.wg.Add(1)
	goroutine.SafeGo("events-async", func() {
		defer a.wg.Done()
		for batch := range a.queue {
			a.next.Publish(context.Background(), batch...)
		}
	})
	return a
}

func (a *Async) Publish(_ context.Context, events ...entity.DomainEvent) {
	if len(events) == 0 {
		return
	}
	batch := append([]entity.DomainEvent(nil), events...)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		logger.Log.WithField("count", len(batch)).Warn("events: издатель закрыт, события отброшены")
		return
	}
	select {
	case a.queue <- batch:
	default:
		logger.Log.WithField("count", len(batch)).Warn("events: очередь издателя переполнена, события отброшены")
	}
}

// Close дожидается отправки накопленных событий. Publish после Close
// отбрасывает события.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

// Recorder запоминает события; используется в тестах и при отладке.
type Recorder struct {
	mu     sync.Mutex
	events []entity.DomainEvent
}

func (r *Recorder) Publish(_ context.Context, events ...entity.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *Recorder) Events() []entity.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.DomainEvent(nil), r.events...)
}

// OfType возвращает события заданного типа.
func (r *Recorder) OfType(t entity.EventType) []entity.DomainEvent {
	var out []entity.DomainEvent
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
