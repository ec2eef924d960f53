package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-library-api/internal/models"
	"github.com/noah-isme/sma-library-api/internal/policy"
	"github.com/noah-isme/sma-library-api/pkg/jobs"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type clientInfoKey struct{}

// ClientInfo identifies the network peer behind a request.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo attaches the caller's address and user agent to ctx for audit entries.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func clientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// AuditEntry describes one mutation to record.
type AuditEntry struct {
	Actor      policy.Actor
	Action     string
	Resource   policy.Resource
	ResourceID string
	Before     interface{}
	After      interface{}
}

// AuditService writes audit logs through a background queue so request
// latency does not include the insert. A nil *AuditService records nothing.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue[models.AuditLog]
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService builds the service and its queue. Call Start before use.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger, workers, buffer int) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: buffer,
		MaxRetries: 2,
		RetryDelay: 200 * time.Millisecond,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains pending entries.
func (s *AuditService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record enqueues entry. Failures are logged, never returned: the audited
// operation has already been committed.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil {
		return
	}
	info := clientInfoFrom(ctx)
	log := models.AuditLog{
		ID:        uuid.NewString(),
		Action:    entry.Action,
		Resource:  string(entry.Resource),
		OldValues: snapshot(entry.Before),
		NewValues: snapshot(entry.After),
		IPAddress: info.IP,
		UserAgent: info.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	if entry.Actor.UserID != "" {
		userID := entry.Actor.UserID
		log.UserID = &userID
	}
	if entry.ResourceID != "" {
		resourceID := entry.ResourceID
		log.ResourceID = &resourceID
	}

	// The request context may be cancelled before the enqueue returns.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.queue.Enqueue(enqueueCtx, jobs.Job[models.AuditLog]{ID: log.ID, Type: entry.Action, Payload: log}); err != nil {
		s.metrics.RecordAudit("dropped")
		s.logger.Warn("audit entry dropped", zap.String("resource", log.Resource), zap.String("action", log.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job[models.AuditLog]) error {
	log := job.Payload
	if err := s.repo.Create(ctx, &log); err != nil {
		s.metrics.RecordAudit("failed")
		return err
	}
	s.metrics.RecordAudit("written")
	return nil
}

func snapshot(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
