package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimezoneService(t *testing.T) {
	env := newEnv(t)
	tz := NewTimezoneService(env.clock.Now)

	env.clock.Set(time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-11", tz.CurrentUserDate("Asia/Tokyo"))
	assert.Equal(t, "2024-03-10", tz.CurrentUserDate(""))

	local, err := tz.ConvertFromUTC(env.clock.Now(), "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, 5, local.Hour())

	_, err = tz.ConvertFromUTC(env.clock.Now(), "Bad/Zone")
	assert.Error(t, err)

	prev, err := PreviousDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", prev)
}
