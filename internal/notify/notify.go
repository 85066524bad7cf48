// Package notify sends operator alerts for circuit-breaker trips, risk
// rejections, and algorithm completion/failure, grounded on the teacher's
// internal/bot/telegram.go sendMarkdown/sendStartupMessage pattern,
// generalized from a prediction-signal bot to a plain event-to-message
// notifier with no command listener or inline keyboards (the execution
// core has no chat commands to serve).
package notify

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Notifier sends operator alerts. A Notifier with no TelegramToken
// (constructed via NewNoop, or via New when the token is blank) is a
// silent no-op, so the rest of the engine never needs to check whether
// alerting is configured.
type Notifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// New connects to Telegram using token/chatID. If token is empty, it
// returns a no-op Notifier rather than an error, since alerting is
// optional infrastructure, not a required dependency.
func New(token string, chatID int64, cooldown time.Duration) (*Notifier, error) {
	if token == "" {
		return NewNoop(), nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: connect telegram: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("notify: telegram connected")

	return &Notifier{
		api:      api,
		chatID:   chatID,
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
	}, nil
}

// NewNoop returns a Notifier that drops every message, for tests and
// environments with no Telegram credentials configured.
func NewNoop() *Notifier {
	return &Notifier{lastSent: make(map[string]time.Time)}
}

// BreakerTripped alerts that the circuit breaker opened.
func (n *Notifier) BreakerTripped(reason string) {
	n.sendCooldownedMarkdown("breaker_tripped", fmt.Sprintf(
		"🔴 *CIRCUIT BREAKER TRIPPED*\n\n_Reason: %s_", reason))
}

// BreakerReset alerts that the circuit breaker closed again.
func (n *Notifier) BreakerReset() {
	n.sendCooldownedMarkdown("breaker_reset", "🟢 *Circuit breaker reset*")
}

// RiskRejected alerts that a pre-trade risk rule rejected an order.
func (n *Notifier) RiskRejected(rule, reason, symbol string) {
	n.sendCooldownedMarkdown("risk_rejected:"+rule, fmt.Sprintf(
		"🟡 *RISK REJECTED*\n\n*Rule:* %s\n*Symbol:* %s\n_%s_", rule, symbol, reason))
}

// AlgoCompleted alerts that an execution algorithm finished.
func (n *Notifier) AlgoCompleted(algoID, symbol string, filledScaled int64) {
	n.sendMarkdown(fmt.Sprintf(
		"✅ *ALGO COMPLETED*\n\n*ID:* %s\n*Symbol:* %s\n*Filled:* %d", algoID, symbol, filledScaled))
}

// AlgoFailed alerts that an execution algorithm failed.
func (n *Notifier) AlgoFailed(algoID, symbol, reason string) {
	n.sendMarkdown(fmt.Sprintf(
		"❌ *ALGO FAILED*\n\n*ID:* %s\n*Symbol:* %s\n_%s_", algoID, symbol, reason))
}

// Startup sends a one-off boot message.
func (n *Notifier) Startup(mode string) {
	n.sendMarkdown(fmt.Sprintf("🟢 *Execution core online*\n\nMode: %s", mode))
}

// sendCooldownedMarkdown suppresses repeats of the same key within the
// configured cooldown window, mirroring the teacher's AlertCooldown field
// on Config (used there to rate-limit repeated spread alerts per market).
func (n *Notifier) sendCooldownedMarkdown(key, text string) {
	if n.api == nil {
		return
	}
	n.mu.Lock()
	last, seen := n.lastSent[key]
	now := time.Now()
	if seen && now.Sub(last) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent[key] = now
	n.mu.Unlock()

	n.sendMarkdown(text)
}

func (n *Notifier) sendMarkdown(text string) {
	if n.api == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("notify: send failed")
	}
}
