// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package eventbus broadcasts queue size changes between matchmaker processes.
//
// Two topics exist: ChannelMatchRequest carries the mode name of a queue that
// grew, ChannelMatchComplete carries "mode:count" for a queue that shrank.
package eventbus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
)

// Handler receives decoded events. Calls happen on the subscriber's goroutine.
type Handler interface {
	OnIncrease(mode models.MatchMode)
	OnDecrease(mode models.MatchMode, matchedCount int)
}

type Bus interface {
	PublishIncrease(ctx context.Context, mode models.MatchMode) error
	PublishDecrease(ctx context.Context, mode models.MatchMode, matchedCount int) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// HandlerFuncs adapts two functions to a Handler. Nil functions are skipped.
type HandlerFuncs struct {
	Increase func(mode models.MatchMode)
	Decrease func(mode models.MatchMode, matchedCount int)
}

func (h HandlerFuncs) OnIncrease(mode models.MatchMode) {
	if h.Increase != nil {
		h.Increase(mode)
	}
}

func (h HandlerFuncs) OnDecrease(mode models.MatchMode, matchedCount int) {
	if h.Decrease != nil {
		h.Decrease(mode, matchedCount)
	}
}

func EncodeIncrease(mode models.MatchMode) string {
	return mode.String()
}

func EncodeDecrease(mode models.MatchMode, matchedCount int) string {
	return mode.String() + ":" + strconv.Itoa(matchedCount)
}

func DecodeIncrease(payload string) (models.MatchMode, error) {
	return models.ParseMatchMode(payload)
}

func DecodeDecrease(payload string) (models.MatchMode, int, error) {
	name, rawCount, ok := strings.Cut(payload, ":")
	if !ok {
		return models.MatchModeNone, 0, fmt.Errorf("malformed decrease payload %q", payload)
	}
	mode, err := models.ParseMatchMode(name)
	if err != nil {
		return models.MatchModeNone, 0, err
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil || count < 0 {
		return models.MatchModeNone, 0, fmt.Errorf("malformed decrease count in %q", payload)
	}

	return mode, count, nil
}
