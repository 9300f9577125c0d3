// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package convert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/toeic/pkg/convert"
)

func TestToIntD(t *testing.T) {
	assert.Equal(t, 3, convert.ToIntD(" 3 ", 1))
	assert.Equal(t, 1, convert.ToIntD("", 1))
	assert.Equal(t, 10, convert.ToIntD("ten", 10))
}

func TestToBool(t *testing.T) {
	for _, value := range []string{"true", "TRUE", "1", "yes", " t "} {
		assert.True(t, convert.ToBool(value), value)
	}
	for _, value := range []string{"", "false", "0", "no", "maybe"} {
		assert.False(t, convert.ToBool(value), value)
	}
}
