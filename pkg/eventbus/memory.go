// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

var ErrBusClosed = errors.New("event bus is closed")

type memoryMessage struct {
	channel string
	payload string
}

// MemoryBus delivers events in-process. Each subscriber owns a buffered inbox
// drained by its own goroutine, so publishers never run handlers.
type MemoryBus struct {
	log *logrus.Entry

	mu      sync.RWMutex
	inboxes []chan memoryMessage
	closed  bool
	wg      sync.WaitGroup
	size    int
}

var _ Bus = (*MemoryBus)(nil)

func NewMemoryBus(bufferSize int) *MemoryBus {
	return &MemoryBus{
		log:  logrus.WithField("bus", "memory"),
		size: bufferSize,
	}
}

func (b *MemoryBus) publish(channel, payload string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	for _, inbox := range b.inboxes {
		select {
		case inbox <- memoryMessage{channel: channel, payload: payload}:
		default:
			b.log.WithField("channel", channel).Warn("subscriber inbox full, dropping event")
		}
	}

	return nil
}

func (b *MemoryBus) PublishIncrease(_ context.Context, mode models.MatchMode) error {
	return b.publish(constants.ChannelMatchRequest, EncodeIncrease(mode))
}

func (b *MemoryBus) PublishDecrease(_ context.Context, mode models.MatchMode, matchedCount int) error {
	return b.publish(constants.ChannelMatchComplete, EncodeDecrease(mode, matchedCount))
}

func (b *MemoryBus) Subscribe(_ context.Context, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	inbox := make(chan memoryMessage, b.size)
	b.inboxes = append(b.inboxes, inbox)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range inbox {
			dispatch(b.log, handler, msg.channel, msg.payload)
		}
	}()

	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, inbox := range b.inboxes {
		close(inbox)
	}
	b.inboxes = nil
	b.mu.Unlock()

	b.wg.Wait()

	return nil
}
