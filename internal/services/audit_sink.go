package services

import (
	"encoding/json"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const TaskTypeAudit = "audit:record"

// AuditSink is where audit events go. DBSink writes them synchronously;
// QueueSink hands them to the Redis-backed worker.
type AuditSink interface {
	Record(ev *AuditEvent) error
	Close() error
}

// InitAuditSink picks the sink based on config: the Redis queue when enabled
// and reachable, otherwise direct database writes.
func InitAuditSink(cfg *config.Config, db *gorm.DB) AuditSink {
	if cfg.Redis.Enabled {
		sink, err := NewQueueSink(&cfg.Redis)
		if err != nil {
			logger.Warnf("[Audit] Redis unavailable, falling back to direct writes: %v", err)
			return NewDBSink(db)
		}
		logger.Infof("[Audit] Async sink initialized with Redis at %s", cfg.Redis.Addr)
		return sink
	}
	return NewDBSink(db)
}

// DBSink writes audit events straight to the database.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Record(ev *AuditEvent) error {
	return WriteAuditEvent(s.db, ev)
}

func (s *DBSink) Close() error { return nil }

// QueueSink enqueues audit events on the asynq queue for the worker.
type QueueSink struct {
	client *asynq.Client
}

func NewQueueSink(cfg *config.RedisConfig) (*QueueSink, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection up front so a dead Redis fails fast
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &QueueSink{client: client}, nil
}

func (s *QueueSink) Record(ev *AuditEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeAudit, payload)
	_, err = s.client.Enqueue(task,
		asynq.Queue("audit"),
		asynq.MaxRetry(3),
	)
	return err
}

func (s *QueueSink) Close() error {
	return s.client.Close()
}
