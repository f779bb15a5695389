package services

import (
	"encoding/json"
	"time"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/pkg/logger"
	"gorm.io/gorm"
)

// Audit event names recorded by the auth flows.
const (
	AuditLogin           = "login"
	AuditLoginFailed     = "login_failed"
	AuditRegister        = "register"
	AuditSocialLogin     = "social_login"
	AuditAccountConflict = "account_conflict"
	AuditRotation        = "rotation"
	AuditRotationDenied  = "rotation_denied"
	AuditLogout          = "logout"
	AuditLogoutAll       = "logout_all"
	AuditRevokeFailed    = "revoke_failed"
)

// AuditEvent is one security-relevant occurrence bound for the audit trail.
type AuditEvent struct {
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"message"`
	UserID    *uint                  `json:"user_id,omitempty"`
	JTI       string                 `json:"jti,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
	At        time.Time              `json:"at"`
}

// AuditService records events through a sink: a direct database write, or the
// Redis queue when the async pipeline is enabled. Recording failures are
// logged but never fail the calling auth operation.
type AuditService struct {
	sink AuditSink
}

func NewAuditService(sink AuditSink) *AuditService {
	return &AuditService{sink: sink}
}

func (s *AuditService) Info(event, message string, userID *uint, jti, ip, userAgent string) {
	s.record("info", event, message, userID, jti, ip, userAgent, nil)
}

func (s *AuditService) Warning(event, message string, userID *uint, jti, ip, userAgent string) {
	s.record("warning", event, message, userID, jti, ip, userAgent, nil)
}

func (s *AuditService) Failure(event, message string, userID *uint, jti string, cause error) {
	extra := map[string]interface{}{}
	if cause != nil {
		extra["error"] = cause.Error()
	}
	s.record("error", event, message, userID, jti, "", "", extra)
}

func (s *AuditService) record(level, event, message string, userID *uint, jti, ip, userAgent string, extra map[string]interface{}) {
	if s == nil || s.sink == nil {
		return
	}
	ev := &AuditEvent{
		Level:     level,
		Event:     event,
		Message:   message,
		UserID:    userID,
		JTI:       jti,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extra,
		At:        time.Now(),
	}
	if err := s.sink.Record(ev); err != nil {
		logger.Error().Err(err).Str("event", event).Msg("failed to record audit event")
	}
}

// WriteAuditEvent persists one event to audit_logs. Shared by the synchronous
// sink and the async worker.
func WriteAuditEvent(db *gorm.DB, ev *AuditEvent) error {
	var extraStr string
	if len(ev.Extra) > 0 {
		if b, err := json.Marshal(ev.Extra); err == nil {
			extraStr = string(b)
		}
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	return db.Create(&models.AuditLog{
		Level:     ev.Level,
		Event:     ev.Event,
		Message:   ev.Message,
		UserID:    ev.UserID,
		JTI:       ev.JTI,
		IP:        ev.IP,
		UserAgent: ev.UserAgent,
		Extra:     extraStr,
		CreatedAt: at,
	}).Error
}
