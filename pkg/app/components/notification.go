package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/kindlize/pkg/app/styles"
)

const NotificationTimeout = 2 * time.Second

// NotificationExpiredMsg fires when a message's display time is up. Seq
// ties it to the message it was scheduled for.
type NotificationExpiredMsg struct {
	Seq int
}

// Notification shows one transient message at a time. Showing a new
// message replaces the current one, and the old message's timer is
// ignored when it fires.
type Notification struct {
	Message  string
	Visible  bool
	Duration time.Duration
	seq      int
}

func NewNotification() *Notification {
	return &Notification{Duration: NotificationTimeout}
}

// Show displays msg and returns the command that will dismiss it.
func (n *Notification) Show(msg string) tea.Cmd {
	n.seq++
	n.Message = msg
	n.Visible = true

	seq := n.seq
	return tea.Tick(n.Duration, func(time.Time) tea.Msg {
		return NotificationExpiredMsg{Seq: seq}
	})
}

// Update hides the message if msg is the expiry of the one on screen.
func (n *Notification) Update(msg tea.Msg) {
	if expired, ok := msg.(NotificationExpiredMsg); ok && expired.Seq == n.seq {
		n.Visible = false
	}
}

func (n *Notification) View() string {
	if !n.Visible || n.Message == "" {
		return ""
	}
	return styles.NotificationStyle.Render(n.Message)
}
