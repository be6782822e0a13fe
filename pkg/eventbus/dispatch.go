// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package eventbus

import (
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
)

// dispatch decodes one raw message and hands it to handler. Malformed payloads are dropped.
func dispatch(log *logrus.Entry, handler Handler, channel string, payload string) {
	switch channel {
	case constants.ChannelMatchRequest:
		mode, err := DecodeIncrease(payload)
		if err != nil {
			log.WithField("channel", channel).Warnf("dropping queue event: %s", err)
			return
		}
		handler.OnIncrease(mode)
	case constants.ChannelMatchComplete:
		mode, count, err := DecodeDecrease(payload)
		if err != nil {
			log.WithField("channel", channel).Warnf("dropping queue event: %s", err)
			return
		}
		handler.OnDecrease(mode, count)
	default:
		log.WithField("channel", channel).Warn("dropping event from unknown channel")
	}
}
