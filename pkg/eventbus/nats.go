// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// NATSBus uses the channel names as NATS subjects.
type NATSBus struct {
	conn *nats.Conn
	log  *logrus.Entry

	mu   sync.Mutex
	subs []*nats.Subscription
}

var _ Bus = (*NATSBus)(nil)

func NewNATSBus(conn *nats.Conn) *NATSBus {
	return &NATSBus{
		conn: conn,
		log:  logrus.WithField("bus", "nats"),
	}
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("queue-matchmaker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.Warnf("nats disconnected: %s", err)
			}
		}),
	)
}

func (b *NATSBus) PublishIncrease(_ context.Context, mode models.MatchMode) error {
	return b.conn.Publish(constants.ChannelMatchRequest, []byte(EncodeIncrease(mode)))
}

func (b *NATSBus) PublishDecrease(_ context.Context, mode models.MatchMode, matchedCount int) error {
	return b.conn.Publish(constants.ChannelMatchComplete, []byte(EncodeDecrease(mode, matchedCount)))
}

// Subscribe registers handler on both subjects. On failure none of the subscriptions
// made by this call are left behind.
func (b *NATSBus) Subscribe(ctx context.Context, handler Handler) error {
	onMsg := func(msg *nats.Msg) {
		dispatch(b.log, handler, msg.Subject, string(msg.Data))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]*nats.Subscription, 0, 2)
	for _, subject := range []string{constants.ChannelMatchRequest, constants.ChannelMatchComplete} {
		sub, err := b.conn.Subscribe(subject, onMsg)
		if err != nil {
			b.unsubscribe(subs)
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	if err := b.flush(ctx); err != nil {
		b.unsubscribe(subs)
		return fmt.Errorf("confirm subscriptions: %w", err)
	}
	b.subs = append(b.subs, subs...)

	return nil
}

// flush waits for the server to register the subscriptions, bounded by ctx when it carries a deadline.
func (b *NATSBus) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return b.conn.FlushWithContext(ctx)
	}
	return b.conn.Flush()
}

func (b *NATSBus) unsubscribe(subs []*nats.Subscription) {
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			b.log.Warnf("unable to drop subscription to %s: %s", sub.Subject, err)
		}
	}
}

// Close drains the subscriptions. The connection itself belongs to the caller.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.subs = nil

	return firstErr
}
