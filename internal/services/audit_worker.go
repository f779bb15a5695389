package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// AuditWorker drains audit events from the Redis queue into the database.
// Only started when the async pipeline is enabled.
type AuditWorker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	db      *gorm.DB
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewAuditWorker(cfg *config.RedisConfig, db *gorm.DB) *AuditWorker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"audit": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[AuditWorker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &AuditWorker{
		server: server,
		mux:    asynq.NewServeMux(),
		db:     db,
	}
}

func (w *AuditWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeAudit, w.handleAuditTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[AuditWorker] Starting audit worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[AuditWorker] Server error: %v", err)
		}
	}()

	return nil
}

func (w *AuditWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.server.Shutdown()
	w.wg.Wait()
	w.running = false
}

func (w *AuditWorker) handleAuditTask(ctx context.Context, task *asynq.Task) error {
	var ev AuditEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return err
	}
	return WriteAuditEvent(w.db, &ev)
}
