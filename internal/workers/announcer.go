// Package workers contains the background consumers that drain the job queue.
package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/queue"
	"github.com/vavebg/ops-console/internal/services/ai"
)

// PhotoSender posts a photo announcement to the channel
type PhotoSender interface {
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// Announcer processes announcement jobs by posting them to Telegram
type Announcer struct {
	sender   PhotoSender
	jobQueue queue.JobQueue // For re-enqueueing jobs with delays
	logger   *zap.Logger
}

// NewAnnouncer creates a new announcer
func NewAnnouncer(sender PhotoSender, jobQueue queue.JobQueue, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{
		sender:   sender,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ProcessAnnounceJob posts one announcement
func (a *Announcer) ProcessAnnounceJob(ctx context.Context, job *queue.Job) error {
	if job.ImageURL == "" {
		return fmt.Errorf("image_url is required for announce job")
	}

	if err := a.sender.SendPhoto(ctx, job.ImageURL, job.Caption); err != nil {
		return fmt.Errorf("failed to send announcement: %w", err)
	}

	a.logger.Info("announcement_sent",
		zap.String("job_id", job.ID.String()),
		zap.String("asset_id", job.AssetID),
	)
	return nil
}

// ProcessJob processes a job based on its type
func (a *Announcer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		a.logger.Info("job_not_ready",
			zap.String("job_id", job.ID.String()),
			zap.Timep("not_before", job.NotBefore),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			a.logger.Error("nack_failed", zap.Error(nackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeAnnounce:
		if err := a.ProcessAnnounceJob(ctx, job); err != nil {
			return a.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			a.logger.Error("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError decides between delayed re-enqueue, immediate retry, and DLQ
func (a *Announcer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	// Rate limits and quota errors get a delayed retry through the
	// delayed exchange instead of hammering the API
	if ai.IsRateLimitError(err) || ai.IsQuotaError(err) {
		if job.CanRetry() && a.jobQueue != nil {
			retryDelay := ai.GetRetryDelay(err, job.RetryCount)
			notBefore := time.Now().Add(retryDelay)

			delayedJob := &queue.Job{
				ID:         job.ID,
				Type:       job.Type,
				AssetID:    job.AssetID,
				ImageURL:   job.ImageURL,
				Caption:    job.Caption,
				NotBefore:  &notBefore,
				NotAfter:   job.NotAfter,
				CreatedAt:  job.CreatedAt,
				RetryCount: job.RetryCount + 1,
				MaxRetries: job.MaxRetries,
			}

			if ackErr := msg.Ack(); ackErr != nil {
				a.logger.Error("ack_failed", zap.Error(ackErr))
			}

			if enqueueErr := a.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				return fmt.Errorf("rate limited, failed to re-enqueue: %w", enqueueErr)
			}

			a.logger.Warn("announcement_delayed",
				zap.String("job_id", job.ID.String()),
				zap.Time("not_before", notBefore),
				zap.Duration("delay", retryDelay),
				zap.Error(err),
			)
			return nil
		}

		// Out of retries, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Error("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("announcement failed (max retries): %w", err)
	}

	// For other errors, use standard retry logic
	if job.CanRetry() {
		job.IncrementRetry()
		a.logger.Warn("announcement_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			a.logger.Error("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("announcement failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	a.logger.Error("announcement_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		a.logger.Error("nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("announcement failed (max retries): %w", err)
}
