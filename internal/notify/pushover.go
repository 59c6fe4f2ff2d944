// Package notify delivers attention notifications through Pushover.
//
// The coordinator uses it to ping the user when an approval batch lands in
// the queue while another batch holds the UI. Delivery is best effort;
// failures are remembered but never propagate into router state.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bhandras/usher/pkg/logger"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// Config carries Pushover credentials and delivery tuning.
type Config struct {
	Token    string
	UserKey  string
	Priority int

	// Cooldown suppresses repeat notifications that share an alert key.
	// Zero disables suppression.
	Cooldown time.Duration

	// Endpoint overrides the API URL. Empty means DefaultEndpoint.
	Endpoint string
}

// Message is one notification to deliver.
type Message struct {
	Title string
	Body  string

	// AlertKey groups messages for cooldown purposes. Messages with an
	// empty key are never suppressed.
	AlertKey string
}

// Notifier posts messages to Pushover, applying the configured cooldown.
// Safe for concurrent use.
type Notifier struct {
	cfg    Config
	client *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
	lastErr  error
}

// NewNotifier returns a notifier for cfg.
func NewNotifier(cfg Config) *Notifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Notifier{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		lastSent: make(map[string]time.Time),
	}
}

// Enabled reports whether credentials are configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.Token != "" && n.cfg.UserKey != ""
}

// Notify delivers msg unless it is suppressed by the cooldown. Suppressed
// and disabled sends return nil.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}
	if !n.admit(msg.AlertKey) {
		logger.Debugf("notify: suppressed %q (cooldown)", msg.AlertKey)
		return nil
	}

	err := n.post(ctx, msg)
	n.mu.Lock()
	n.lastErr = err
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("pushover: %w", err)
	}
	return nil
}

// LastError returns the outcome of the most recent delivery attempt.
func (n *Notifier) LastError() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// admit records a send for key and reports whether it may go out now.
func (n *Notifier) admit(key string) bool {
	if key == "" || n.cfg.Cooldown <= 0 {
		return true
	}
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.cfg.Cooldown {
		return false
	}
	n.lastSent[key] = now
	return true
}

func (n *Notifier) post(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("token", n.cfg.Token)
	form.Set("user", n.cfg.UserKey)
	form.Set("title", msg.Title)
	form.Set("message", msg.Body)
	if n.cfg.Priority != 0 {
		form.Set("priority", strconv.Itoa(n.cfg.Priority))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
