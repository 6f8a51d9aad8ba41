// Package processor consumes tone analysis jobs and writes the results
// back onto messages. Analysis is best effort enrichment: a job that fails
// leaves the message untoned, it never blocks or retries the send path.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/fefejiro/peacepad/internal/repositories/message"
	"github.com/fefejiro/peacepad/pkg/events"
	"github.com/fefejiro/peacepad/pkg/kafka"
	"github.com/fefejiro/peacepad/pkg/metrics"
	"github.com/fefejiro/peacepad/pkg/redis"
	"github.com/fefejiro/peacepad/pkg/tone"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

// dedupePrefix marks tone jobs that have already been applied, so redelivered
// messages skip the analysis call.
const dedupePrefix = "peacepad:tone:"

// dedupeTTL bounds how long an applied job is remembered. Kafka redelivery
// windows are far shorter than this.
const dedupeTTL = 24 * time.Hour

// Config configures the tone processor
type Config struct {
	// ProcessTimeout is the timeout for processing a single job
	ProcessTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		ProcessTimeout: 30 * time.Second,
	}
}

// Processor applies tone analysis jobs to messages
type Processor struct {
	config   Config
	messages *message.Repository
	analyzer *tone.Client
	redis    *redis.Client
	logger   ectologger.Logger

	jobsProcessed int64
	jobsSkipped   int64
	jobsFailed    int64
	mu            sync.Mutex
}

// NewProcessor creates a new tone processor
func NewProcessor(
	config Config,
	messages *message.Repository,
	analyzer *tone.Client,
	redisClient *redis.Client,
	logger ectologger.Logger,
) *Processor {
	return &Processor{
		config:   config,
		messages: messages,
		analyzer: analyzer,
		redis:    redisClient,
		logger:   logger,
	}
}

// ProcessJob analyzes one message and persists the resulting tone
func (p *Processor) ProcessJob(ctx context.Context, job *events.ToneJob) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessJob")
	defer span.End()

	if p.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProcessTimeout)
		defer cancel()
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"message_id":     job.MessageID,
		"partnership_id": job.PartnershipID,
	})

	// Dedupe check is best effort; a Redis outage means we may analyze a
	// redelivered job twice, which is harmless.
	dedupeKey := dedupePrefix + job.MessageID
	if p.redis != nil {
		applied, err := p.redis.Exists(ctx, dedupeKey)
		if err != nil {
			log.WithError(err).Warn("Failed to check tone job dedupe key")
		} else if applied {
			log.Debug("Tone job already applied, skipping")
			p.incrementSkipped()
			metrics.RecordToneJob("duplicate")
			return nil
		}
	}

	result, err := p.analyzer.Analyze(ctx, job.Content)
	if err != nil {
		p.incrementFailed()
		metrics.RecordToneJob("failed")
		return fmt.Errorf("tone analysis failed for message %s: %w", job.MessageID, err)
	}

	if err := p.messages.SetTone(ctx, job.PartnershipID, job.MessageID, result.Tone, result.Confidence); err != nil {
		// The message may have been deleted since the job was enqueued.
		p.incrementSkipped()
		metrics.RecordToneJob("stale")
		log.WithError(err).Warn("Failed to store tone result")
		return nil
	}

	if p.redis != nil {
		if err := p.redis.Set(ctx, dedupeKey, "1", dedupeTTL); err != nil {
			log.WithError(err).Warn("Failed to set tone job dedupe key")
		}
	}

	p.incrementProcessed()
	metrics.RecordToneJob("ok")
	log.WithFields(map[string]any{
		"tone":       result.Tone,
		"confidence": result.Confidence,
	}).Info("Applied tone analysis")

	return nil
}

// MessageHandler returns a kafka.MessageHandler for use with the consumer
func (p *Processor) MessageHandler() kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.ReceivedMessage) error {
		job, err := events.ParseToneJob(msg.Value)
		if err != nil {
			// Malformed jobs are logged and dropped; redelivery cannot fix them.
			p.incrementFailed()
			metrics.RecordToneJob("invalid")
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("Failed to parse tone job")
			return nil
		}

		return p.ProcessJob(ctx, job)
	}
}

func (p *Processor) incrementProcessed() {
	p.mu.Lock()
	p.jobsProcessed++
	p.mu.Unlock()
}

func (p *Processor) incrementSkipped() {
	p.mu.Lock()
	p.jobsSkipped++
	p.mu.Unlock()
}

func (p *Processor) incrementFailed() {
	p.mu.Lock()
	p.jobsFailed++
	p.mu.Unlock()
}

// Stats returns processor statistics
type Stats struct {
	JobsProcessed int64
	JobsSkipped   int64
	JobsFailed    int64
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		JobsProcessed: p.jobsProcessed,
		JobsSkipped:   p.jobsSkipped,
		JobsFailed:    p.jobsFailed,
	}
}
