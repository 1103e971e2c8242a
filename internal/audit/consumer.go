// Package audit drains attendance.recorded messages into the audit log.
package audit

import (
	"context"
	"fmt"
	"log"

	"track75/internal/attendance"
	"track75/internal/metrics"
	"track75/internal/queue"
)

// Sink stores audit entries. attendance.Repository satisfies it.
type Sink interface {
	AppendAudit(ctx context.Context, entry attendance.AuditEntry) error
}

// Run consumes q until ctx is cancelled or the queue closes.
func Run(ctx context.Context, q queue.Queue, sink Sink) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if err := Handle(ctx, sink, msg); err != nil {
			log.Printf("audit: %v", err)
		}
	}
	return nil
}

// Handle stores a single message. Messages of other types are ignored.
func Handle(ctx context.Context, sink Sink, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceRecorded {
		return nil
	}
	entry, err := attendance.DecodeRecorded(msg.Body)
	if err != nil {
		metrics.AuditProcessed.WithLabelValues(metrics.Error).Inc()
		return fmt.Errorf("decode message: %w", err)
	}
	if err := sink.AppendAudit(ctx, entry); err != nil {
		metrics.AuditProcessed.WithLabelValues(metrics.Error).Inc()
		return fmt.Errorf("append entry for %s on %s: %w", entry.UserID, entry.Date, err)
	}
	metrics.AuditProcessed.WithLabelValues(metrics.OK).Inc()
	return nil
}
