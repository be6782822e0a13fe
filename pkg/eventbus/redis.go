// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package eventbus

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// RedisBus publishes over Redis PUBLISH and consumes with one SUBSCRIBE connection per Subscribe call.
type RedisBus struct {
	client redis.UniversalClient
	log    *logrus.Entry

	mu     sync.Mutex
	subs   []*redis.PubSub
	wg     sync.WaitGroup
	closed bool
}

var _ Bus = (*RedisBus)(nil)

func NewRedisBus(client redis.UniversalClient) *RedisBus {
	return &RedisBus{
		client: client,
		log:    logrus.WithField("bus", "redis"),
	}
}

func (b *RedisBus) PublishIncrease(ctx context.Context, mode models.MatchMode) error {
	return b.client.Publish(ctx, constants.ChannelMatchRequest, EncodeIncrease(mode)).Err()
}

func (b *RedisBus) PublishDecrease(ctx context.Context, mode models.MatchMode, matchedCount int) error {
	return b.client.Publish(ctx, constants.ChannelMatchComplete, EncodeDecrease(mode, matchedCount)).Err()
}

// Subscribe returns once the subscription is confirmed by the server.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler) error {
	pubsub := b.client.Subscribe(ctx, constants.ChannelMatchRequest, constants.ChannelMatchComplete)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return redis.ErrClosed
	}
	b.subs = append(b.subs, pubsub)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		for msg := range pubsub.Channel() {
			dispatch(b.log, handler, msg.Channel, msg.Payload)
		}
	}()

	return nil
}

// Close ends every subscription. The client itself belongs to the caller.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.wg.Wait()

	return firstErr
}
