//go:build integration

package messaging_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/valueobject"
	"github.com/bibbank/phishguard/internal/infrastructure/messaging"
	"github.com/bibbank/phishguard/pkg/kafka"
	"github.com/bibbank/phishguard/pkg/testutil"
)

type chanInvalidator struct {
	ch chan []valueobject.Fingerprint
}

func (c *chanInvalidator) Invalidate(_ context.Context, fps ...valueobject.Fingerprint) error {
	c.ch <- fps
	return nil
}

func TestKafka_FeedbackInvalidationRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kc := testutil.NewKafkaContainer(ctx, t)
	const topic = "phishguard.events"
	kc.CreateTopic(t, topic)

	cfg := kafka.Config{Brokers: kc.Brokers, ConsumerGroup: "phishguard-test"}
	producer, err := kafka.NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()

	inv := &chanInvalidator{ch: make(chan []valueobject.Fingerprint, 1)}
	handler := messaging.NewFeedbackInvalidationHandler(inv, testLogger())
	consumer, err := kafka.NewConsumer(cfg, topic, handler.Handle, testLogger())
	require.NoError(t, err)
	defer consumer.Close()

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = consumer.Start(consumeCtx) }()

	pub := messaging.NewKafkaPublisher(producer, topic, testLogger())
	require.NoError(t, pub.Publish(ctx, feedbackEvent("https://paypa1-login.example/", false)))

	select {
	case fps := <-inv.ch:
		assert.Equal(t, valueobject.FingerprintsForURL("https://paypa1-login.example/"), fps)
	case <-ctx.Done():
		t.Fatal("timed out waiting for invalidation")
	}
}
