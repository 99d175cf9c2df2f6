// Package counter tracks the number of uploads recorded on the current
// calendar day. The count lives in a single persisted blob and resets itself
// whenever the stored date stamp no longer matches today.
package counter

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/blob"
	"github.com/vavebg/ops-console/internal/models"
)

// StorageKey is the blob key for the persisted daily counter
const StorageKey = "upload_counter"

// DailyCounter counts uploads per local calendar day
type DailyCounter struct {
	blobs  blob.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a daily counter backed by the given blob store
func New(blobs blob.Store, logger *zap.Logger) *DailyCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyCounter{
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns today's count, resetting first if the stored stamp is stale
func (c *DailyCounter) Get(ctx context.Context) int {
	state := c.load(ctx)
	return state.Count
}

// Increment adds n to today's count and returns the new value
func (c *DailyCounter) Increment(ctx context.Context, n int) int {
	state := c.load(ctx)
	state.Count += n
	c.save(ctx, state)
	return state.Count
}

// load reads the persisted counter, resetting to zero on a new calendar day.
// The reset is persisted immediately so the stored stamp always matches the
// returned count.
func (c *DailyCounter) load(ctx context.Context) models.DailyCounter {
	today := c.todayStamp()

	data, err := c.blobs.Get(ctx, StorageKey)
	if err != nil {
		if err != blob.ErrNotFound {
			c.logger.Warn("failed_to_load_upload_counter", zap.Error(err))
		}
		state := models.DailyCounter{DateStamp: today}
		c.save(ctx, state)
		return state
	}

	var state models.DailyCounter
	if err := json.Unmarshal(data, &state); err != nil {
		c.logger.Warn("malformed_upload_counter_reset", zap.Error(err))
		state = models.DailyCounter{}
	}

	if state.DateStamp != today {
		state = models.DailyCounter{DateStamp: today}
		c.save(ctx, state)
	}
	return state
}

func (c *DailyCounter) save(ctx context.Context, state models.DailyCounter) {
	data, err := json.Marshal(state)
	if err != nil {
		c.logger.Warn("failed_to_marshal_upload_counter", zap.Error(err))
		return
	}
	if err := c.blobs.Set(ctx, StorageKey, data); err != nil {
		c.logger.Warn("failed_to_persist_upload_counter", zap.Error(err))
	}
}

// todayStamp formats the current local day as YYYY-MM-DD
func (c *DailyCounter) todayStamp() string {
	return c.now().Format("2006-01-02")
}
