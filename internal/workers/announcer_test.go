package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vavebg/ops-console/internal/queue"
)

// mockSender is a mock implementation of PhotoSender
type mockSender struct {
	sendFunc func(ctx context.Context, photoURL, caption string) error
	calls    int
}

func (m *mockSender) SendPhoto(ctx context.Context, photoURL, caption string) error {
	m.calls++
	if m.sendFunc != nil {
		return m.sendFunc(ctx, photoURL, caption)
	}
	return nil
}

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

// mockJobQueue records enqueued jobs
type mockJobQueue struct {
	jobs       []*queue.Job
	enqueueErr error
}

func (q *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (q *mockJobQueue) Close() error { return nil }

func (q *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

func announceJob() *queue.Job {
	return queue.NewAnnounceJob("asset-1", "https://cdn.example.com/a.jpg", "New post from example.com/p/asset-1")
}

func TestAnnouncer_ProcessJob_Success(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	announcer := NewAnnouncer(sender, &mockJobQueue{}, nil)
	msg := &mockMessage{job: announceJob()}

	if err := announcer.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sender.calls != 1 {
		t.Errorf("Expected 1 send call, got %d", sender.calls)
	}
	if !msg.acked {
		t.Error("Expected message to be acked")
	}
	if msg.nacked {
		t.Error("Expected message not to be nacked")
	}
}

func TestAnnouncer_ProcessJob_NotReadyRequeues(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	announcer := NewAnnouncer(sender, &mockJobQueue{}, nil)

	job := announceJob()
	notBefore := time.Now().Add(time.Hour)
	job.NotBefore = &notBefore
	msg := &mockMessage{job: job}

	if err := announcer.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("Expected no send calls, got %d", sender.calls)
	}
	if !msg.nacked || !msg.requeue {
		t.Error("Expected message to be nacked with requeue")
	}
}

func TestAnnouncer_ProcessJob_UnknownTypeGoesToDLQ(t *testing.T) {
	t.Parallel()

	announcer := NewAnnouncer(&mockSender{}, &mockJobQueue{}, nil)
	job := announceJob()
	job.Type = "mystery"
	msg := &mockMessage{job: job}

	err := announcer.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error for unknown job type")
	}
	if !msg.nacked || msg.requeue {
		t.Error("Expected message to be nacked without requeue")
	}
}

func TestAnnouncer_ProcessJob_RateLimitReenqueuesWithDelay(t *testing.T) {
	t.Parallel()

	sender := &mockSender{
		sendFunc: func(context.Context, string, string) error {
			return errors.New("telegram returned status 429: Too Many Requests")
		},
	}
	jobQueue := &mockJobQueue{}
	announcer := NewAnnouncer(sender, jobQueue, nil)
	msg := &mockMessage{job: announceJob()}

	if err := announcer.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Expected delayed retry to be handled, got %v", err)
	}
	if !msg.acked {
		t.Error("Expected original message to be acked before re-enqueue")
	}
	if len(jobQueue.jobs) != 1 {
		t.Fatalf("Expected 1 re-enqueued job, got %d", len(jobQueue.jobs))
	}

	retry := jobQueue.jobs[0]
	if retry.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", retry.RetryCount)
	}
	if retry.NotBefore == nil {
		t.Fatal("Expected NotBefore on re-enqueued job")
	}
	if delay := time.Until(*retry.NotBefore); delay < 55*time.Second {
		t.Errorf("Expected at least 60s backoff, got %v", delay)
	}
}

func TestAnnouncer_ProcessJob_TransientErrorRetries(t *testing.T) {
	t.Parallel()

	sender := &mockSender{
		sendFunc: func(context.Context, string, string) error {
			return errors.New("connection refused")
		},
	}
	announcer := NewAnnouncer(sender, &mockJobQueue{}, nil)
	msg := &mockMessage{job: announceJob()}

	err := announcer.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error for failed send")
	}
	if !msg.nacked || !msg.requeue {
		t.Error("Expected message to be nacked with requeue")
	}
}

func TestAnnouncer_ProcessJob_MaxRetriesDeadLetters(t *testing.T) {
	t.Parallel()

	sender := &mockSender{
		sendFunc: func(context.Context, string, string) error {
			return errors.New("connection refused")
		},
	}
	announcer := NewAnnouncer(sender, &mockJobQueue{}, nil)

	job := announceJob()
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	err := announcer.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error after max retries")
	}
	if !msg.nacked || msg.requeue {
		t.Error("Expected message to be nacked without requeue")
	}
}

func TestAnnouncer_ProcessAnnounceJob_RequiresImageURL(t *testing.T) {
	t.Parallel()

	announcer := NewAnnouncer(&mockSender{}, &mockJobQueue{}, nil)
	job := announceJob()
	job.ImageURL = ""

	if err := announcer.ProcessAnnounceJob(context.Background(), job); err == nil {
		t.Error("Expected error for missing image url")
	}
}
