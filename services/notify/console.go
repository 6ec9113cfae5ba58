package notifysvc

import (
	"context"
	"log"
	"sync"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

// ConsoleNotifier prints notifications instead of delivering them. Used in DEV and TEST.
type ConsoleNotifier struct {
	std           *log.Logger
	disableOutput bool

	mu   sync.Mutex
	sent []core.Notification
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(std *log.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{std: std}
}

// NewConsoleNotifierMock records notifications silently.
func NewConsoleNotifierMock() *ConsoleNotifier {
	return &ConsoleNotifier{disableOutput: true}
}

func (cn *ConsoleNotifier) Notify(_ context.Context, n core.Notification) error {
	if !n.HasRecipient() {
		return nil
	}
	if !cn.disableOutput {
		cn.std.Printf("To: %s <%s> %s\nSubject: %s\n\n%s\n", n.To.Name, n.To.Email, n.To.Phone, n.Subject, n.Body)
	}
	cn.mu.Lock()
	cn.sent = append(cn.sent, n)
	cn.mu.Unlock()
	return nil
}

// Sent returns the notifications delivered so far.
func (cn *ConsoleNotifier) Sent() []core.Notification {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	return append([]core.Notification(nil), cn.sent...)
}
