package shared

// NoticeKind is the tone of a user notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notifier presents a short message to the user. Calls are fire-and-forget.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// Navigator moves the user to a named route.
type Navigator interface {
	GoTo(route string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(NoticeKind, string) {}

// NopNavigator discards navigation requests.
type NopNavigator struct{}

func (NopNavigator) GoTo(string) {}
