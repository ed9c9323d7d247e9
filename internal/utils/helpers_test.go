package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYMD(t *testing.T) {
	d, err := ParseYMD(" 2026-02-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseYMD("01/02/2026")
	assert.Error(t, err)
}

func TestStrOrEmpty(t *testing.T) {
	v := "5.3.0"
	assert.Equal(t, "5.3.0", StrOrEmpty(&v))
	assert.Empty(t, StrOrEmpty(nil))
}
