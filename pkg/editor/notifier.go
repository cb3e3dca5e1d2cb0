package editor

import "github.com/dixieflatline76/Retouch/util/log"

// Severity of a user notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient user-visible message. Delivery is fire and
// forget.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	log.Printf("Notification [%s] %s: %s", n.Severity, n.Title, n.Description)
}

// MultiNotifier fans a notification out to every member.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

func notify(n Notifier, title, description string, severity Severity) {
	if n == nil {
		return
	}
	n.Notify(Notification{Title: title, Description: description, Severity: severity})
}
