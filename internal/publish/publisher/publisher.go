package publisher

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"topicpub/internal/publish"
	"topicpub/internal/validator"
)

// maxConcurrentBatches bounds the number of batch publish calls in flight at
// once across one PublishEvents invocation.
const maxConcurrentBatches = 25

// Config carries the static calling context of the publisher.
type Config struct {
	// Service is the deploying service name, used in locator paths.
	Service string
	// RequireTenant rejects oversize events published without a tenant code
	// instead of falling back to the shared locator namespace.
	RequireTenant bool
}

// Publisher is the concrete implementation of publish.Publisher. It resolves
// the topic, formats and partitions events, offloads oversize payloads and
// dispatches batches under a fixed concurrency ceiling.
type Publisher struct {
	transport publish.Transport
	offloader publish.Offloader
	tenants   publish.TenantProvider
	config    Config
	logger    *zap.Logger
}

// NewPublisher creates a publisher. Use publish.StaticTenant("") when the
// calling context carries no tenant.
func NewPublisher(
	transport publish.Transport,
	offloader publish.Offloader,
	tenants publish.TenantProvider,
	config Config,
	logger *zap.Logger,
) (*Publisher, error) {
	p := Publisher{
		transport: transport,
		offloader: offloader,
		tenants:   tenants,
		config:    config,
		logger:    logger,
	}

	if err := validator.Validate("publisher", p.transport, p.offloader, p.tenants, p.config.Service, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate publisher deps: %w", err)
	}

	return &p, nil
}

// PublishEvent implements publish.Publisher.PublishEvent. The same size check
// and offload path as the batch flow applies before the single publish call;
// an offload that fails on every destination surfaces as an error here since
// there is no partial result to return.
func (p *Publisher) PublishEvent(ctx context.Context, destinationID string, event publish.Event) (*publish.SingleResult, error) {
	topic, _, err := publish.ResolveTopic(destinationID)
	if err != nil {
		return nil, err
	}

	entry, err := publish.FormatEvent(event, topic, "", p.formatOptions(ctx))
	if err != nil {
		return nil, err
	}

	if entry.ExceedsLimit {
		failure, err := p.offloader.Offload(ctx, entry)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			return nil, fmt.Errorf("failed to offload payload: %w", publish.ErrBlobStore)
		}
	}

	ack, err := p.transport.Publish(ctx, destinationID, entry.Wire())
	if err != nil {
		return nil, fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.logger.Debug("published event",
		zap.String("topic", topic),
		zap.String("messageId", ack.MessageID),
	)

	return &publish.SingleResult{
		MessageID:      ack.MessageID,
		SequenceNumber: ack.SequenceNumber,
	}, nil
}

// PublishEvents implements publish.Publisher.PublishEvents. Batches run
// concurrently and may complete in any order; outcomes are keyed by entry
// identifier and sorted before returning. Call-level transport errors and
// systemic lookup failures reject the whole operation.
func (p *Publisher) PublishEvents(ctx context.Context, destinationID string, events []publish.Event) (*publish.BatchResult, error) {
	topic, _, err := publish.ResolveTopic(destinationID)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With(zap.String("topic", topic))

	batches, err := publish.PartitionEvents(events, topic, p.formatOptions(ctx))
	if err != nil {
		return nil, err
	}

	logger.Debug("partitioned events",
		zap.Int("events", len(events)),
		zap.Int("batches", len(batches)),
	)

	result := new(publish.BatchResult)
	if len(batches) == 0 {
		return result, nil
	}

	// Resolve the destination list up front when any entry needs offloading
	// so a systemic lookup failure rejects before any publish call.
	if anyExceedsLimit(batches) {
		if err := p.offloader.EnsureDestinations(ctx); err != nil {
			return nil, err
		}
	}

	outcomes := make([]batchOutcome, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for i, batch := range batches {
		g.Go(func() error {
			out, err := p.dispatchBatch(gctx, destinationID, batch)
			if err != nil {
				return err
			}
			outcomes[i] = *out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("failed to publish events", zap.Error(err))
		return nil, fmt.Errorf("failed to publish events: %w", err)
	}

	for i := range outcomes {
		result.Merge(outcomes[i].ack, outcomes[i].offloadFailures)
	}
	result.Finalize()

	logger.Info("published events",
		zap.Int("successCount", result.SuccessCount),
		zap.Int("failedCount", result.FailedCount),
	)

	return result, nil
}

type batchOutcome struct {
	ack             *publish.BatchAck
	offloadFailures []publish.FailedEntry
}

// dispatchBatch offloads the batch's oversize entries concurrently, then
// issues the batch publish call for the entries still standing. Entries that
// failed during offload join the call's failure list instead of aborting it.
func (p *Publisher) dispatchBatch(ctx context.Context, destinationID string, batch []*publish.DraftEntry) (*batchOutcome, error) {
	failures := make([]*publish.FailedEntry, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range batch {
		if !entry.ExceedsLimit {
			continue
		}
		g.Go(func() error {
			failure, err := p.offloader.Offload(gctx, entry)
			if err != nil {
				return err
			}
			failures[i] = failure
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := batchOutcome{}
	ready := make([]publish.WireEntry, 0, len(batch))
	for i, entry := range batch {
		if failures[i] != nil {
			out.offloadFailures = append(out.offloadFailures, *failures[i])
			continue
		}
		ready = append(ready, entry.Wire())
	}

	if len(ready) == 0 {
		return &out, nil
	}

	ack, err := p.transport.PublishBatch(ctx, destinationID, ready)
	if err != nil {
		return nil, fmt.Errorf("batch publish call failed: %w", err)
	}
	out.ack = ack

	return &out, nil
}

func (p *Publisher) formatOptions(ctx context.Context) publish.FormatOptions {
	return publish.FormatOptions{
		Service:       p.config.Service,
		Tenant:        p.tenants.Tenant(ctx),
		RequireTenant: p.config.RequireTenant,
	}
}

func anyExceedsLimit(batches [][]*publish.DraftEntry) bool {
	for _, batch := range batches {
		for _, entry := range batch {
			if entry.ExceedsLimit {
				return true
			}
		}
	}
	return false
}
