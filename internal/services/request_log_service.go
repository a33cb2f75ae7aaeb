// Package services holds the application services behind the HTTP layer.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ccswitch/internal/models"
	"ccswitch/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	requestLogCachePrefix = "request_log:"
	pendingLogKeysSet     = "pending_log_keys"
	logFlushBatchSize     = 200
	logFlushInterval      = time.Minute
	logEntryTTL           = 5 * logFlushInterval
)

// RequestLogService records proxied requests. Writes are staged in the store
// and flushed to the database in batches so logging never blocks the request
// path on a database write.
type RequestLogService struct {
	db    *gorm.DB
	store store.Store

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRequestLogService creates a new RequestLogService instance.
func NewRequestLogService(db *gorm.DB, st store.Store) *RequestLogService {
	return &RequestLogService{
		db:       db,
		store:    st,
		stopChan: make(chan struct{}),
	}
}

// Start launches the periodic flush routine.
func (s *RequestLogService) Start() {
	s.wg.Add(1)
	go s.runLoop()
}

func (s *RequestLogService) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopChan:
			return
		}
	}
}

// Stop terminates the flush loop and performs a final flush so staged logs
// survive shutdown. Bounded by ctx.
func (s *RequestLogService) Stop(ctx context.Context) {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.flush()
		close(done)
	}()

	select {
	case <-done:
		logrus.Debug("Request log service stopped")
	case <-ctx.Done():
		logrus.Warn("Request log service stop timed out")
	}
}

// Record stages one request log for the next flush.
func (s *RequestLogService) Record(entry *models.RequestLog) error {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal request log: %w", err)
	}

	cacheKey := requestLogCachePrefix + entry.ID
	if err := s.store.Set(cacheKey, data, logEntryTTL); err != nil {
		return err
	}
	return s.store.SAdd(pendingLogKeysSet, cacheKey)
}

// flush drains the pending set in batches and writes them to the database.
// A failed batch is re-added to the pending set and retried on the next tick.
func (s *RequestLogService) flush() {
	for {
		keys, err := s.store.SPopN(pendingLogKeysSet, logFlushBatchSize)
		if err != nil {
			logrus.WithError(err).Error("Failed to pop pending log keys")
			return
		}
		if len(keys) == 0 {
			return
		}

		logs := make([]*models.RequestLog, 0, len(keys))
		flushedKeys := make([]string, 0, len(keys))
		for _, key := range keys {
			data, err := s.store.Get(key)
			if err != nil {
				if err != store.ErrNotFound {
					logrus.WithError(err).WithField("key", key).Warn("Failed to read staged log")
				}
				continue
			}
			var entry models.RequestLog
			if err := json.Unmarshal(data, &entry); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("Dropping corrupt staged log")
				s.store.Del(key)
				continue
			}
			logs = append(logs, &entry)
			flushedKeys = append(flushedKeys, key)
		}

		if len(logs) == 0 {
			continue
		}

		if err := s.db.CreateInBatches(logs, logFlushBatchSize).Error; err != nil {
			logrus.WithError(err).Error("Failed to flush request logs, will retry")
			members := make([]any, len(flushedKeys))
			for i, k := range flushedKeys {
				members[i] = k
			}
			if err := s.store.SAdd(pendingLogKeysSet, members...); err != nil {
				logrus.WithError(err).Error("Failed to re-stage unflushed log keys")
			}
			return
		}

		if err := s.store.Del(flushedKeys...); err != nil {
			logrus.WithError(err).Error("Failed to delete flushed log bodies")
		}
		logrus.WithField("count", len(logs)).Debug("Flushed request logs")
	}
}

// LogQuery carries the filters and paging for ListLogs.
type LogQuery struct {
	Tier      string
	Provider  string
	Model     string
	IsSuccess string
	Page      int
	PageSize  int
}

// LogPage is one page of request logs plus the unfiltered-match total.
type LogPage struct {
	Items    []models.RequestLog `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// ListLogs returns logs newest-first, filtered and paged.
func (s *RequestLogService) ListLogs(query LogQuery) (*LogPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 500 {
		query.PageSize = 50
	}

	db := s.db.Model(&models.RequestLog{})
	if query.Tier != "" {
		db = db.Where("tier = ?", query.Tier)
	}
	if query.Provider != "" {
		db = db.Where("provider = ?", query.Provider)
	}
	if query.Model != "" {
		db = db.Where("model = ?", query.Model)
	}
	if query.IsSuccess != "" {
		if isSuccess, err := strconv.ParseBool(query.IsSuccess); err == nil {
			db = db.Where("is_success = ?", isSuccess)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.RequestLog
	offset := (query.Page - 1) * query.PageSize
	if err := db.Order("timestamp DESC").Limit(query.PageSize).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}

	return &LogPage{
		Items:    items,
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}
