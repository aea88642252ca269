package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"leavehub/internal/bootstrap"
	"leavehub/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeLeaveRequestLifecycle turns lifecycle events into audit
// entries. Malformed messages are committed and dropped so one bad
// payload never wedges the partition; transient failures leave the
// offset alone and the message is retried.
func ConsumeLeaveRequestLifecycle(
	ctx context.Context,
	reader *kafkago.Reader,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave request lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave request lifecycle consumer stopped")
				return
			}
			log.Error("fetch leave lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.LeaveRequestLifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave lifecycle event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		auditLogger.Log(ctx, bootstrap.AuditLog{
			Action:  event.EventType,
			Message: auditMessage(event),
			Meta: map[string]any{
				"leave_request_id": event.LeaveRequest,
				"request_number":   event.RequestNumber,
				"company_id":       event.CompanyID,
				"employee_id":      event.EmployeeID,
				"leave_type_id":    event.LeaveTypeID,
				"days_requested":   event.DaysRequested,
				"actioned_by":      event.ActionedBy,
				"occurred_at":      event.OccurredAt,
			},
		})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave lifecycle message failed", zap.Error(err))
			continue
		}

		log.Info("leave lifecycle event processed",
			zap.String("event_type", event.EventType),
			zap.String("leave_request_id", event.LeaveRequest),
			zap.String("request_number", event.RequestNumber),
		)
	}
}

func auditMessage(event events.LeaveRequestLifecycleEvent) string {
	switch event.EventType {
	case events.LeaveRequestSubmitted:
		return fmt.Sprintf("leave request %s submitted for %d day(s)", event.RequestNumber, event.DaysRequested)
	case events.LeaveRequestApproved:
		return fmt.Sprintf("leave request %s approved by %s", event.RequestNumber, event.ActionedBy)
	case events.LeaveRequestRejected:
		return fmt.Sprintf("leave request %s rejected by %s", event.RequestNumber, event.ActionedBy)
	default:
		return fmt.Sprintf("leave request %s event %s", event.RequestNumber, event.EventType)
	}
}
