package services

import (
	"strconv"

	"github.com/authgate/authgate/internal/models"
	"gorm.io/gorm"
)

// SystemConfigService reads and writes runtime-tunable settings stored in the
// database, such as token lifetimes and purge retention.
type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	// map conditions let gorm quote the reserved column name per dialect
	if err := s.db.Where(map[string]interface{}{"key": key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetInt returns the config value as an int, falling back to defaultValue for
// missing, unparsable or non-positive values.
func (s *SystemConfigService) GetInt(key string, defaultValue int) int {
	value := s.GetWithDefault(key, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where(map[string]interface{}{"key": key}).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where(map[string]interface{}{"group": group}).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
