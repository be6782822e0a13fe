// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package eventbus

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/models"
	"github.com/AccelByte/extend-queue-matchmaker/pkg/testsetup"
)

func TestMemoryBus_DeliversToEverySubscriber(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	ctx := context.Background()
	bus := NewMemoryBus(16)
	defer bus.Close()

	first, second := &recorder{}, &recorder{}
	g.Expect(bus.Subscribe(ctx, first)).To(Succeed())
	g.Expect(bus.Subscribe(ctx, second)).To(Succeed())

	g.Expect(bus.PublishIncrease(ctx, models.MatchModeOneVsOne)).To(Succeed())
	g.Expect(bus.PublishDecrease(ctx, models.MatchModeTwoVsTwo, 4)).To(Succeed())

	want := []string{"increase:OneVsOne", "decrease:TwoVsTwo:4"}
	g.Eventually(first.Events).Should(Equal(want))
	g.Eventually(second.Events).Should(Equal(want))
}

func TestMemoryBus_DropsMalformedPayloads(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	bus := NewMemoryBus(16)
	defer bus.Close()

	rec := &recorder{}
	g.Expect(bus.Subscribe(context.Background(), rec)).To(Succeed())

	g.Expect(bus.publish(constants.ChannelMatchRequest, "NotAMode")).To(Succeed())
	g.Expect(bus.publish(constants.ChannelMatchComplete, "OneVsOne")).To(Succeed())
	g.Expect(bus.publish("match:unknown", "OneVsOne")).To(Succeed())
	g.Expect(bus.PublishIncrease(context.Background(), models.MatchModeFourVsFour)).To(Succeed())

	g.Eventually(rec.Events).Should(Equal([]string{"increase:FourVsFour"}))
	g.Consistently(rec.Events).Should(HaveLen(1))
}

func TestMemoryBus_Close(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	bus := NewMemoryBus(1)
	g.Expect(bus.Subscribe(context.Background(), &recorder{})).To(Succeed())

	g.Expect(bus.Close()).To(Succeed())
	g.Expect(bus.Close()).To(Succeed(), "close is idempotent")

	err := bus.PublishIncrease(context.Background(), models.MatchModeOneVsOne)
	g.Expect(errors.Is(err, ErrBusClosed)).To(BeTrue())
	err = bus.Subscribe(context.Background(), &recorder{})
	g.Expect(errors.Is(err, ErrBusClosed)).To(BeTrue())
}

func TestHandlerFuncs(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	var increased models.MatchMode
	handler := HandlerFuncs{Increase: func(mode models.MatchMode) { increased = mode }}

	handler.OnIncrease(models.MatchModeThreeVsThree)
	handler.OnDecrease(models.MatchModeThreeVsThree, 6)

	g.Expect(increased).To(Equal(models.MatchModeThreeVsThree))
}
