package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labelhq/settlement-service/internal/domain"
	"github.com/labelhq/settlement-service/internal/store"
)

// EventsExchange is the topic exchange all settlement events are published to.
const EventsExchange = "settlement.events"

// Escalator fans a settlement failure out to the audit sink, the events
// exchange and, for the severe codes, an administrative alert email. None of
// its collaborators may block or fail the caller: escalation is how problems
// become visible, never how they propagate.
type Escalator struct {
	repo      store.Repository
	publisher EventPublisher
	mailer    Mailer
}

// NewEscalator creates an escalator. publisher and mailer may be nil.
func NewEscalator(repo store.Repository, publisher EventPublisher, mailer Mailer) *Escalator {
	return &Escalator{repo: repo, publisher: publisher, mailer: mailer}
}

// Escalate records one escalation. The raw payload is preserved verbatim for
// forensic replay. When alert is set an admin email is also attempted.
func (e *Escalator) Escalate(ctx context.Context, reason domain.EscalationReason, correlationKey, detail string, raw []byte, alert bool) {
	event := domain.EscalationEvent{
		Reason:         reason,
		CorrelationKey: correlationKey,
		Detail:         detail,
		RawPayload:     string(raw),
		Timestamp:      time.Now().UTC(),
	}

	log.Printf("level=warn component=escalation reason=%s correlation_key=%s detail=%q", reason, correlationKey, detail)

	if err := e.repo.InsertAuditEvent(ctx, event); err != nil {
		log.Printf("level=error component=escalation msg=\"audit write failed\" reason=%s err=%v", reason, err)
	}

	if e.publisher != nil {
		routingKey := "settlement.escalation." + string(reason)
		if err := e.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
			log.Printf("level=warn component=escalation msg=\"event publish failed\" reason=%s err=%v", reason, err)
		}
	}

	if alert && e.mailer != nil {
		subject := fmt.Sprintf("Settlement escalation: %s", reason)
		body := detail
		if correlationKey != "" {
			body = fmt.Sprintf("%s\ncorrelation key: %s", detail, correlationKey)
		}
		if err := e.mailer.SendAdminAlert(ctx, subject, body); err != nil {
			log.Printf("level=warn component=escalation msg=\"admin alert failed\" reason=%s err=%v", reason, err)
		}
	}
}
