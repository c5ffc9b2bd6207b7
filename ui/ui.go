// Package ui holds the handles the capture session uses to reflect its
// state to the signer: the open trigger, the capture modal, the loading
// indicator and the toast sink.
package ui

import (
	"sync"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Trigger is the control that opens the capture modal.
type Trigger interface {
	Enabled() bool
	// Disable disables and hides the trigger for good.
	Disable()
}

type Modal interface {
	Show()
	Hide()
}

type Indicator interface {
	Show()
	Hide()
}

type Notifier interface {
	Notify(message string, kind Kind)
}

// Hold shows ind and returns the function that hides it again. Calling
// the release more than once hides it only once.
func Hold(ind Indicator) (release func()) {
	ind.Show()
	var once sync.Once
	return func() {
		once.Do(ind.Hide)
	}
}

// Toggle is a visibility flag usable as Modal or Indicator.
type Toggle struct {
	mu      sync.Mutex
	visible bool
	shows   int
	hides   int
	onShow  func()
	onHide  func()
}

// NewToggle returns a hidden toggle. The callbacks may be nil.
func NewToggle(onShow, onHide func()) *Toggle {
	return &Toggle{onShow: onShow, onHide: onHide}
}

func (t *Toggle) Show() {
	t.mu.Lock()
	t.visible = true
	t.shows++
	fn := t.onShow
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *Toggle) Hide() {
	t.mu.Lock()
	t.visible = false
	t.hides++
	fn := t.onHide
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *Toggle) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// Counts returns how many times Show and Hide were called.
func (t *Toggle) Counts() (shows, hides int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shows, t.hides
}

// Button is a Trigger that starts enabled and visible.
type Button struct {
	mu       sync.Mutex
	disabled bool
}

func (b *Button) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.disabled
}

func (b *Button) Disable() {
	b.mu.Lock()
	b.disabled = true
	b.mu.Unlock()
}
