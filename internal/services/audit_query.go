package services

import (
	"github.com/authgate/authgate/internal/models"
	"gorm.io/gorm"
)

// AuditQueryService serves the admin audit trail listing.
type AuditQueryService struct {
	db *gorm.DB
}

func NewAuditQueryService(db *gorm.DB) *AuditQueryService {
	return &AuditQueryService{db: db}
}

type AuditListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Event     string `form:"event"`
	UserID    uint   `form:"user_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type AuditListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.AuditLog `json:"items"`
}

func (s *AuditQueryService) List(req *AuditListRequest) (*AuditListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.AuditLog
	var total int64

	query := s.db.Model(&models.AuditLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Event != "" {
		query = query.Where("event = ?", req.Event)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &AuditListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *AuditQueryService) GetEvents() ([]string, error) {
	var events []string
	if err := s.db.Model(&models.AuditLog{}).Distinct("event").Pluck("event", &events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
