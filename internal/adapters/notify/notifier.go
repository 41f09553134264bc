// Package notify turns lifecycle events into short chat messages and sends
// them to every configured channel.
package notify

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// DefaultEvents are the event types worth a message.
var DefaultEvents = []model.EventType{
	model.EventSignalCreated,
	model.EventSignalWatching,
	model.EventBetTaken,
	model.EventSignalExpired,
	model.EventSignalSettled,
	model.EventSignalClosed,
}

// Notifier is the notification sink. Sends share one rate limiter so a burst
// of events cannot trip the chat services' own limits.
type Notifier struct {
	senders []Sender
	allowed map[model.EventType]bool
	limiter *rate.Limiter
	log     logger.Logger
}

// NewNotifier creates a Notifier. rps <= 0 disables throttling; a nil events
// list means DefaultEvents.
func NewNotifier(senders []Sender, events []model.EventType, rps float64, log logger.Logger) *Notifier {
	if events == nil {
		events = DefaultEvents
	}
	allowed := make(map[model.EventType]bool, len(events))
	for _, e := range events {
		allowed[e] = true
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Name implements sink.Sink.
func (n *Notifier) Name() string { return "notify" }

// Deliver implements sink.Sink. Filtered events are dropped silently.
func (n *Notifier) Deliver(ctx context.Context, ev model.Event) error {
	if !n.allowed[ev.Type] || len(n.senders) == 0 {
		return nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: rate limit: %w", err)
	}

	title, message := Format(ev)
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.log.Error(ctx, "sender failed", logger.String("sender", s.Name()), logger.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %d sender(s): %s", ErrSendFailed, len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Format renders the title and body of a message for ev.
func Format(ev model.Event) (string, string) {
	name := ev.StrategyName
	if name == "" {
		name = ev.StrategyID
	}
	title := fmt.Sprintf("%s: %s", name, strings.ReplaceAll(string(ev.Type), "_", " "))

	var b strings.Builder
	if g := ev.Game; g != nil {
		fmt.Fprintf(&b, "%s %d - %d %s", teamLabel(g.Away, "away"), g.AwayScore, g.HomeScore, teamLabel(g.Home, "home"))
		if g.Quarter > 0 {
			fmt.Fprintf(&b, " (Q%d %s)", g.Quarter, g.Clock)
		}
	} else {
		fmt.Fprintf(&b, "game %s", ev.GameID)
	}
	if ev.Trigger != nil {
		fmt.Fprintf(&b, "\ntrigger: %s", triggerLabel(ev.Trigger))
	}
	if sig := ev.Signal; sig != nil {
		if sig.ObservedOdds != nil && sig.RequiredOdds != nil {
			fmt.Fprintf(&b, "\n%s %s at %s (required %s)",
				sig.RequiredOdds.Type, sig.BetSide, sig.ObservedOdds.String(), sig.RequiredOdds.Value.String())
		}
		if sig.FinalScore != nil {
			fmt.Fprintf(&b, "\nfinal %d - %d", sig.FinalScore.Away, sig.FinalScore.Home)
		}
	}
	if ev.Result != model.ResultNone {
		fmt.Fprintf(&b, "\nresult: %s", ev.Result)
	}
	return title, b.String()
}

func teamLabel(t model.Team, fallback string) string {
	switch {
	case t.Abbreviation != "":
		return t.Abbreviation
	case t.Name != "":
		return t.Name
	}
	return fallback
}

func triggerLabel(t *model.Trigger) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
