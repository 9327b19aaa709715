// Package notify delivers user-facing notifications: blocking alerts for
// local validation problems and non-blocking toasts for service outcomes.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type Variant int

const (
	Default Variant = iota
	Destructive
)

// Toast is a transient, non-blocking notification.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

type Notifier interface {
	Alert(ctx context.Context, message string)
	Toast(ctx context.Context, t Toast)
}

// WriterNotifier prints notifications to a terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Alert(ctx context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "\n!! %s\n", message)
}

func (n *WriterNotifier) Toast(ctx context.Context, t Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()

	marker := "*"
	if t.Variant == Destructive {
		marker = "x"
	}
	if t.Description == "" {
		fmt.Fprintf(n.w, "[%s] %s\n", marker, t.Title)
		return
	}
	fmt.Fprintf(n.w, "[%s] %s %s\n", marker, t.Title, t.Description)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu     sync.Mutex
	alerts []string
	toasts []Toast
}

func (r *Recorder) Alert(ctx context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, message)
}

func (r *Recorder) Toast(ctx context.Context, t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *Recorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}
