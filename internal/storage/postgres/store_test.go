package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

func TestJSONArray(t *testing.T) {
	b, err := jsonArray[recorder.ShopEvent](nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	b, err = jsonArray([]recorder.RawBlock{{Turn: 2, Type: "ATTACK"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Turn":2,"Type":"ATTACK","SourceEntityId":0}]`, string(b))
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	now := time.Now()
	require.NotNil(t, nullTime(now))
	assert.True(t, now.Equal(*nullTime(now)))
}
