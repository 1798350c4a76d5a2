package bus

import (
	"context"
	"log"
	"sync"
)

// Handler получает опубликованные события
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus — внутрипроцессная шина событий. Доставка лучшими усилиями:
// каждый текущий подписчик получает каждое событие в порядке подписки,
// без повторной доставки для подписавшихся позже.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	nextID      uint64

	publish chan Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		publish: make(chan Event, 256),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Run запускает цикл доставки событий
func (b *Bus) Run() {
	defer close(b.done)

	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.publish:
			b.dispatch(event)
		}
	}
}

// Stop останавливает шину
func (b *Bus) Stop() {
	b.cancel()
	<-b.done
}

// Subscribe регистрирует обработчик и возвращает функцию отписки.
// Каждое представление обязано отписаться при своём завершении.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{id: b.nextID, handler: handler}
	b.subscribers = append(b.subscribers, sub)

	id := sub.id
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s.id == id {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish ставит событие в очередь доставки
func (b *Bus) Publish(eventType EventType, payload any) {
	select {
	case b.publish <- Event{Type: eventType, Payload: payload}:
	case <-b.ctx.Done():
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	subs := make([]*subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

// deliver изолирует панику обработчика, чтобы не сорвать доставку остальным
func (b *Bus) deliver(sub *subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic on %s: %v", event.Type, r)
		}
	}()

	sub.handler(event)
}
