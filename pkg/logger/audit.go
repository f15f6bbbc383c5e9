package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventLogout         = "logout"
	EventRoleAssigned   = "role_assigned"
	EventProfileCreated = "profile_created"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security events to a dedicated slog stream
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// Log emits the event at info level on success and warn level otherwise
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

func (al *AuditLogger) LogLogin(ctx context.Context, userID, ipAddress, userAgent string) {
	al.Log(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})
}

func (al *AuditLogger) LogLoginFailure(ctx context.Context, ipAddress, userAgent, reason string) {
	al.Log(ctx, AuditEvent{
		EventType:     EventLoginFailure,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		FailureReason: reason,
	})
}

func (al *AuditLogger) LogLogout(ctx context.Context, userID, ipAddress string) {
	al.Log(ctx, AuditEvent{
		EventType: EventLogout,
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   true,
	})
}

// LogAccountAction records role and profile changes
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType, userID, ipAddress string, metadata map[string]string) {
	al.Log(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  metadata,
	})
}
