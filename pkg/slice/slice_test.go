// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slice_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/toeic/pkg/slice"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, slice.Map([]int{1, 2}, strconv.Itoa))
	assert.Nil(t, slice.Map[int, string](nil, strconv.Itoa))
}

func TestFilter(t *testing.T) {
	notBlank := func(s string) bool { return strings.TrimSpace(s) != "" }

	assert.Equal(t, []string{"a", "b"}, slice.Filter([]string{"a", " ", "b", ""}, notBlank))
	assert.Nil(t, slice.Filter([]string{" "}, notBlank))
}
