package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-orchestrator/internal/domain"
	"github.com/spec-kit/ops-orchestrator/internal/events"
	"github.com/spec-kit/ops-orchestrator/internal/observability"
	"github.com/spec-kit/ops-orchestrator/internal/repository"
)

// NotificationService turns orchestration events into notification records.
// It runs behind the dispatcher, so a failure here never rolls back the
// ticket mutation that produced the event.
type NotificationService struct {
	notifications repository.NotificationRepository
	staff         repository.StaffRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
	ticketBaseURL string
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, staff repository.StaffRepository, logger *zap.Logger, metrics *observability.Metrics, ticketBaseURL string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		staff:         staff,
		logger:        logger,
		metrics:       metrics,
		ticketBaseURL: ticketBaseURL,
	}
}

// RegisterHandlers subscribes to orchestration events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketReassigned, n.handleTicketReassigned)
	dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	dispatcher.Subscribe(events.EventCrisisAssigned, n.handleCrisisAssigned)
}

func (n *NotificationService) handleTicketReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReassignedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for reassignment event", zap.String("ticket_id", event.TicketID))
		return nil
	}
	n.create(ctx, &domain.NotificationRecord{
		RecipientID: payload.NewAssigneeID,
		Title:       "Ticket reassigned to you",
		Message: fmt.Sprintf("Ticket %s has been reassigned to you. Please acknowledge by %s.",
			event.TicketID, payload.AcknowledgeBy.Format("15:04 MST")),
		Type:      domain.NotificationTypeAssignment,
		ActionURL: n.ticketURL(event.TicketID),
		Metadata: map[string]any{
			"ticket_id":      event.TicketID,
			"acknowledge_by": payload.AcknowledgeBy,
		},
	})
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for escalation event", zap.String("ticket_id", event.TicketID))
		return nil
	}
	audience := domain.AudienceForLevel(payload.NewLevel)
	recipients, err := n.staff.ListGroupAudience(ctx, event.Group, audience)
	if err != nil {
		n.metrics.Add(observability.MetricNotifyFailures, 1)
		n.logger.Warn("failed to resolve escalation audience",
			zap.String("ticket_id", event.TicketID),
			zap.String("group", event.Group),
			zap.String("role", string(audience)),
			zap.Error(err))
		return nil
	}
	for i := range recipients {
		n.create(ctx, &domain.NotificationRecord{
			RecipientID: recipients[i].ID,
			Title:       fmt.Sprintf("Ticket escalated to level %d", payload.NewLevel),
			Message:     fmt.Sprintf("Ticket %s: %s", event.TicketID, payload.Reason),
			Type:        domain.NotificationTypeEscalation,
			ActionURL:   n.ticketURL(event.TicketID),
			Metadata: map[string]any{
				"ticket_id":      event.TicketID,
				"previous_level": int(payload.PreviousLevel),
				"new_level":      int(payload.NewLevel),
			},
		})
	}
	return nil
}

func (n *NotificationService) handleCrisisAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CrisisAssignedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for crisis event", zap.String("ticket_id", event.TicketID))
		return nil
	}
	n.create(ctx, &domain.NotificationRecord{
		RecipientID: payload.AssigneeID,
		Title:       "Crisis ticket assigned to you",
		Message: fmt.Sprintf("Crisis ticket %s requires immediate attention. Acknowledge by %s.",
			event.TicketID, payload.AcknowledgeBy.Format("15:04 MST")),
		Type:      domain.NotificationTypeCrisis,
		ActionURL: n.ticketURL(event.TicketID),
		Metadata: map[string]any{
			"ticket_id":      event.TicketID,
			"acknowledge_by": payload.AcknowledgeBy,
		},
	})
	return nil
}

func (n *NotificationService) create(ctx context.Context, record *domain.NotificationRecord) {
	record.ID = uuid.NewString()
	if err := n.notifications.Create(ctx, record); err != nil {
		n.metrics.Add(observability.MetricNotifyFailures, 1)
		n.logger.Warn("failed to persist notification",
			zap.String("recipient_id", record.RecipientID),
			zap.String("type", string(record.Type)),
			zap.Error(err))
	}
}

func (n *NotificationService) ticketURL(ticketID string) *string {
	if n.ticketBaseURL == "" {
		return nil
	}
	url := fmt.Sprintf("%s/%s", n.ticketBaseURL, ticketID)
	return &url
}
