package event

import (
	"reflect"
	"sync"
)

type envelope struct {
	key reflect.Type
	ev  any
}

// Bus is a double-buffered event bus. Events emitted during tick N are
// delivered during tick N+1, in emission order, after SwapBuffers.
type Bus struct {
	mu       sync.Mutex // guards handlers only; Emit runs on the game loop
	front    []envelope
	back     []envelope
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]envelope, 0, 64),
		back:     make([]envelope, 0, 64),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues ev for the next dispatch.
func Emit[T any](b *Bus, ev T) {
	b.back = append(b.back, envelope{key: keyOf[T](), ev: ev})
}

// Subscribe registers fn for every event of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := keyOf[T]()
	b.handlers[k] = append(b.handlers[k], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers makes last tick's events deliverable and starts a fresh back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers the front buffer. Handlers may Emit; those events
// land in the back buffer for the next tick.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	handlers := b.handlers
	b.mu.Unlock()
	for _, e := range b.front {
		for _, h := range handlers[e.key] {
			h(e.ev)
		}
	}
	n := len(b.front)
	b.front = b.front[:0]
	return n
}
