// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AccelByte/extend-queue-matchmaker/pkg/testsetup"
)

func TestEncode(t *testing.T) {
	clock := testsetup.NewFakeClock(time.Unix(1000, 0))
	codec := Codec{Now: clock.Now}

	assert.Equal(t, int64(10001500), codec.Encode(1500))
	assert.Equal(t, int64(1000), Arrival(codec.Encode(1500)))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, mmr := range []int{0, 1, 99, 1500, 5000, 9998, 9999} {
		encoded := Encode(mmr)
		gotMMR, waitTime := Decode(encoded)
		assert.Equal(t, mmr, gotMMR)
		assert.Contains(t, []int{0, 1}, waitTime)
	}
}

func TestDecode(t *testing.T) {
	clock := testsetup.NewFakeClock(time.Unix(2000, 0))
	codec := Codec{Now: clock.Now}

	tests := []struct {
		name     string
		score    int64
		mmr      int
		waitTime int
	}{
		{name: "waited 30 seconds", score: 1970*10000 + 1234, mmr: 1234, waitTime: 30},
		{name: "arrived now", score: 2000*10000 + 9999, mmr: 9999, waitTime: 0},
		{name: "arrival in the future is clamped", score: 2010*10000 + 10, mmr: 10, waitTime: 0},
		{name: "negative score is the corruption sentinel", score: -5, mmr: 0, waitTime: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mmr, waitTime := codec.Decode(tt.score)
			assert.Equal(t, tt.mmr, mmr)
			assert.Equal(t, tt.waitTime, waitTime)
		})
	}
}

func TestDecodeWaitTimeFollowsClock(t *testing.T) {
	clock := testsetup.NewFakeClock(time.Unix(1000, 0))
	codec := Codec{Now: clock.Now}

	encoded := codec.Encode(42)
	clock.Advance(25 * time.Second)

	mmr, waitTime := codec.Decode(encoded)
	assert.Equal(t, 42, mmr)
	assert.Equal(t, 25, waitTime)
}
