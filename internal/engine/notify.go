package engine

import (
	"sync"
	"time"
)

// Kind classifies a user-visible notification.
type Kind string

const (
	KindMoveFailed    Kind = "move_failed"
	KindRefetchFailed Kind = "refetch_failed"
	KindDeleteFailed  Kind = "delete_failed"
)

// Notification is a user-visible, dismissible message about a failed
// background operation.
type Notification struct {
	ID      uint64
	Kind    Kind
	TaskID  string
	Message string
	Err     error
	At      time.Time
}

// Notifier receives notifications from the engine. Implementations must not
// block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Inbox keeps notifications until they are dismissed.
type Inbox struct {
	mu    sync.Mutex
	next  uint64
	items []Notification
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Notify stores n and assigns it an ID.
func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.next++
	n.ID = i.next
	i.items = append(i.items, n)
}

// Pending returns the undismissed notifications, oldest first.
func (i *Inbox) Pending() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Notification(nil), i.items...)
}

// Latest returns the newest undismissed notification.
func (i *Inbox) Latest() (Notification, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.items) == 0 {
		return Notification{}, false
	}
	return i.items[len(i.items)-1], true
}

// Len returns the number of undismissed notifications.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// Dismiss removes the notification with the given ID.
func (i *Inbox) Dismiss(id uint64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx, n := range i.items {
		if n.ID == id {
			i.items = append(i.items[:idx], i.items[idx+1:]...)
			return true
		}
	}
	return false
}

// DismissAll clears the inbox.
func (i *Inbox) DismissAll() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = nil
}
