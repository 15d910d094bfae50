// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/lanefinder/internal/metrics"
)

// Bus publishes and subscribes to cache invalidations.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	origin     string
	logger     watermill.LoggerAdapter

	closeOnce sync.Once
	closeErr  error
}

// NewBus wraps an existing Watermill publisher and subscriber. origin
// identifies this instance; a random one is generated when empty.
func NewBus(pub message.Publisher, sub message.Subscriber, topic, origin string, logger watermill.LoggerAdapter) *Bus {
	if topic == "" {
		topic = DefaultTopic
	}
	if origin == "" {
		origin = uuid.NewString()
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{publisher: pub, subscriber: sub, topic: topic, origin: origin, logger: logger}
}

// NewMemoryBus returns a single-process bus backed by gochannel.
func NewMemoryBus(topic string, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return NewBus(gc, gc, topic, "", logger)
}

// NATSConfig configures a core NATS bus.
type NATSConfig struct {
	URL           string
	Topic         string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewNATSBus connects a publisher and a fan-out subscriber to NATS. JetStream
// is disabled: invalidations are transient and every instance must see every
// message, so there is no queue group.
func NewNATSBus(cfg NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("lanefinder"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return NewBus(pub, sub, cfg.Topic, "", logger), nil
}

// Origin returns this instance's origin ID.
func (b *Bus) Origin() string {
	return b.origin
}

// Topic returns the subject invalidations travel on.
func (b *Bus) Topic() string {
	return b.topic
}

// PublishInvalidation announces that cacheID was invalidated on this
// instance.
func (b *Bus) PublishInvalidation(ctx context.Context, cacheID string) error {
	ev := CacheInvalidated{Cache: cacheID, Origin: b.origin, At: time.Now().UTC()}
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("origin", b.origin)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		metrics.RecordBusMessage("failed")
		return fmt.Errorf("publish invalidation of %s: %w", cacheID, err)
	}
	metrics.RecordBusMessage("published")
	return nil
}

// Subscribe returns the invalidation message stream. It is closed when ctx
// is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, b.topic)
}

// Close closes the publisher and the subscriber. It is safe to call more
// than once.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
		if any(b.subscriber) != any(b.publisher) {
			if err := b.subscriber.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}
