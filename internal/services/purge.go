package services

import (
	"time"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// PurgeService deletes long-expired ledger rows and stale audit logs on a
// nightly schedule. Retention windows come from system configs; the ledger
// keeps expired rows for a while so post-mortems can still see them.
type PurgeService struct {
	db        *gorm.DB
	ledger    *LedgerService
	configSvc *SystemConfigService
	scheduler *cron.Cron
}

func NewPurgeService(db *gorm.DB) *PurgeService {
	return &PurgeService{
		db:        db,
		ledger:    NewLedgerService(db),
		configSvc: NewSystemConfigService(db),
	}
}

// StartScheduler runs a purge immediately and then every night at 03:30.
func (s *PurgeService) StartScheduler() {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc("30 3 * * *", s.Run); err != nil {
		logger.Errorf("[Purge] Failed to schedule purge job: %v", err)
		return
	}

	s.scheduler.Start()
	logger.Infof("[Purge] Scheduler started")

	go s.Run()
}

func (s *PurgeService) StopScheduler() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Run performs one purge pass.
func (s *PurgeService) Run() {
	tokenDays := s.configSvc.GetInt("token_retention_days", 90)
	purged, err := s.ledger.PurgeExpired(time.Duration(tokenDays) * 24 * time.Hour)
	if err != nil {
		logger.Errorf("[Purge] Failed to purge expired tokens: %v", err)
	} else if purged > 0 {
		logger.Infof("[Purge] Removed %d token records expired more than %d days ago", purged, tokenDays)
	}

	auditDays := s.configSvc.GetInt("audit_retention_days", 180)
	cutoff := time.Now().AddDate(0, 0, -auditDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if res.Error != nil {
		logger.Errorf("[Purge] Failed to purge audit logs: %v", res.Error)
	} else if res.RowsAffected > 0 {
		logger.Infof("[Purge] Removed %d audit logs older than %d days", res.RowsAffected, auditDays)
	}
}
