// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/toeic/pkg/uuid"
)

func TestNew(t *testing.T) {
	first, second := uuid.New(), uuid.New()

	assert.True(t, uuid.Valid(first))
	assert.NotEqual(t, first, second)
	assert.Equal(t, byte('7'), first[14], "version nibble")
	assert.LessOrEqual(t, first[:13], second[:13], "time ordered")
}

func TestValid(t *testing.T) {
	assert.True(t, uuid.Valid("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
	assert.False(t, uuid.Valid("f47ac10b58cc4372a5670e02b2c3d479"))
	assert.False(t, uuid.Valid("{f47ac10b-58cc-4372-a567-0e02b2c3d479}"))
	assert.False(t, uuid.Valid("not-a-uuid"))
}
