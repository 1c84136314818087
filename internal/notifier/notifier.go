package notifier

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// EventName identifies a kind of event published on a target.
type EventName string

// Event is handed to every listener of a published event. Listeners of a cancelable event
// may call PreventDefault to stop the default action from running.
type Event struct {
	Name    EventName
	Target  string
	Payload any

	cancelable bool
	prevented  bool
}

// PreventDefault vetoes the default action. It has no effect on events published without one.
func (e *Event) PreventDefault() {
	if e.cancelable {
		e.prevented = true
	}
}

// DefaultPrevented reports whether a listener vetoed the event.
func (e *Event) DefaultPrevented() bool {
	return e.prevented
}

// Listener receives events synchronously on the publisher's goroutine.
type Listener func(e *Event)

type subscription struct {
	id       uint64
	name     EventName
	listener Listener
}

// Notifier keeps an observer list per target. The zero value is not usable; call New.
type Notifier struct {
	mu      sync.Mutex
	nextID  uint64
	targets map[string][]subscription
}

func New() *Notifier {
	return &Notifier{
		targets: make(map[string][]subscription),
	}
}

// Subscribe registers listener for name on target. The returned function removes exactly
// this registration; calling it again is a no-op.
func (n *Notifier) Subscribe(target string, name EventName, listener Listener) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.targets[target] = append(n.targets[target], subscription{
		id:       id,
		name:     name,
		listener: listener,
	})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.remove(target, id)
		})
	}
}

func (n *Notifier) remove(target string, id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.targets[target]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// copy so that an in-flight Publish snapshot is left untouched
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(n.targets, target)
		} else {
			n.targets[target] = next
		}
		return
	}
}

// Publish dispatches name to the listeners of target in registration order, then runs
// defaultAction unless a listener called PreventDefault. It reports whether the default
// action ran. A nil defaultAction makes the event non-cancelable and Publish returns true.
func (n *Notifier) Publish(target string, name EventName, payload any, defaultAction func()) bool {
	e := &Event{
		Name:       name,
		Target:     target,
		Payload:    payload,
		cancelable: defaultAction != nil,
	}

	for _, l := range n.listeners(target, name) {
		l(e)
	}

	if e.prevented {
		log.Debug().Str("target", target).Str("event", string(name)).Msg("event vetoed")
		return false
	}
	if defaultAction != nil {
		defaultAction()
	}
	return true
}

// ListenerCount returns how many listeners are registered for name on target.
func (n *Notifier) ListenerCount(target string, name EventName) int {
	return len(n.listeners(target, name))
}

func (n *Notifier) listeners(target string, name EventName) []Listener {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []Listener
	for _, s := range n.targets[target] {
		if s.name == name {
			out = append(out, s.listener)
		}
	}
	return out
}
