// Copyright (c) 2026 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-50, 0, 9999))
	assert.Equal(t, 9999, Clamp(12000, 0, 9999))
	assert.Equal(t, 1500, Clamp(1500, 0, 9999))
	assert.Equal(t, int64(7), Max(int64(3), int64(7)))
	assert.Equal(t, 3, Min(3, 7))
}
