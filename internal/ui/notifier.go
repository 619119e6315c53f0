package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/desertthunder/todox/internal/shared"
)

var (
	_ shared.Notifier  = (*Notifier)(nil)
	_ shared.Notifier  = (*Feed)(nil)
	_ shared.Navigator = (*Navigator)(nil)
)

// Notifier prints styled notifications, one per line.
type Notifier struct {
	mu      sync.Mutex
	w       io.Writer
	palette *Palette
}

// NewNotifier creates a [Notifier] writing to w, or [os.Stdout] when w is nil.
func NewNotifier(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stdout
	}
	return &Notifier{w: w, palette: styles}
}

func (n *Notifier) Notify(kind shared.NoticeKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, n.palette.Notice(kind, message))
}

// Navigator turns route changes into a printed hint naming the command that shows that route.
type Navigator struct {
	mu      sync.Mutex
	w       io.Writer
	palette *Palette
	hints   map[string]string
	last    string
}

// NewNavigator creates a [Navigator]. hints maps a route to the text printed when it is visited.
func NewNavigator(w io.Writer, hints map[string]string) *Navigator {
	if w == nil {
		w = os.Stdout
	}
	if hints == nil {
		hints = map[string]string{}
	}
	return &Navigator{w: w, palette: styles, hints: hints}
}

func (n *Navigator) GoTo(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = route

	hint, ok := n.hints[route]
	if !ok {
		hint = "→ " + route
	}
	fmt.Fprintln(n.w, n.palette.Hint(hint))
}

// Last returns the most recent route, or "" before any navigation.
func (n *Navigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Notice is one notification delivered through a [Feed].
type Notice struct {
	Kind    shared.NoticeKind
	Message string
}

// Feed is a [shared.Notifier] that queues notifications for an interactive [Model].
//
// Notify never blocks; notices beyond the buffer are dropped.
type Feed struct {
	ch chan Notice
}

// NewFeed creates a [Feed] buffering up to size notices.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 16
	}
	return &Feed{ch: make(chan Notice, size)}
}

func (f *Feed) Notify(kind shared.NoticeKind, message string) {
	select {
	case f.ch <- Notice{Kind: kind, Message: message}:
	default:
	}
}

// C returns the receive side of the feed.
func (f *Feed) C() <-chan Notice {
	return f.ch
}
