package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

const notificationTitle = "Misc Installer"

// NotificationService handles sending notifications. It is also the UI layer
// providers report progress through.
type NotificationService struct {
	config  *domain.NotificationConfig
	logger  *zap.Logger
	run     func(name string, args ...string) error
	mu      sync.Mutex
	pending map[string][]string // delayed messages by framework
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config:  config,
		logger:  logger,
		pending: make(map[string][]string),
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "notify-send":
		return n.sendCommand("notify-send", title, message)
	case "osascript":
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		return n.sendCommand("osascript", "-e", script)
	case "log":
		n.logger.Info("Notification", zap.String("title", title), zap.String("message", message))
		return nil
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

func (n *NotificationService) sendCommand(name string, args ...string) error {
	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", name),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent", zap.String("method", name))
	return nil
}

// Screen returns the UI of one framework. Its delayed messages are only
// flushed by its own ReturnMainScreen.
func (n *NotificationService) Screen(framework string) domain.UI {
	return &frameworkScreen{service: n, framework: framework}
}

// Display shows a progress message right away
func (n *NotificationService) Display(message string) {
	n.display(message)
}

// DelayedDisplay holds a message back until the next ReturnMainScreen
func (n *NotificationService) DelayedDisplay(message string) {
	n.delay("", message)
}

// ReturnMainScreen ends the current interaction, flushing delayed messages
func (n *NotificationService) ReturnMainScreen() {
	n.flush("")
}

func (n *NotificationService) display(message string) {
	n.logger.Info(message)
	n.Send(notificationTitle, message)
}

func (n *NotificationService) delay(framework, message string) {
	n.logger.Info(message, zap.String("framework", framework))
	n.mu.Lock()
	n.pending[framework] = append(n.pending[framework], message)
	n.mu.Unlock()
}

func (n *NotificationService) flush(framework string) {
	n.mu.Lock()
	pending := n.pending[framework]
	delete(n.pending, framework)
	n.mu.Unlock()

	if len(pending) > 0 {
		n.Send(notificationTitle, strings.Join(pending, "\n"))
	}
}

type frameworkScreen struct {
	service   *NotificationService
	framework string
}

func (s *frameworkScreen) Display(message string)        { s.service.display(message) }
func (s *frameworkScreen) DelayedDisplay(message string) { s.service.delay(s.framework, message) }
func (s *frameworkScreen) ReturnMainScreen()             { s.service.flush(s.framework) }

// NotifyInstallQueued sends notification when an install is queued
func (n *NotificationService) NotifyInstallQueued(framework string) {
	n.Send("Install Queued", fmt.Sprintf("Added to queue: %s", framework))
}

// NotifyInstallStarted sends notification when an install starts
func (n *NotificationService) NotifyInstallStarted(framework string) {
	n.Send("Install Started", fmt.Sprintf("Installing: %s", framework))
}

// NotifyInstallCompleted sends notification when an install completes
func (n *NotificationService) NotifyInstallCompleted(framework, installPath string) {
	n.Send("Install Completed", fmt.Sprintf("%s installed in %s", framework, truncateString(installPath, 40)))
}

// NotifyInstallFailed sends notification when an install fails
func (n *NotificationService) NotifyInstallFailed(framework string, err error) {
	n.Send("Install Failed", fmt.Sprintf("%s: %s", framework, truncateString(err.Error(), 60)))
}

// NotifyQueueEmpty sends notification when the queue is empty
func (n *NotificationService) NotifyQueueEmpty() {
	n.Send("Queue Empty", "All installs completed")
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
