// SPDX-License-Identifier: ice License 1.0

package time

import (
	"testing"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime(t *testing.T) { //nolint:funlen // It's better to keep it together.
	t.Parallel()
	type tmpStruct struct {
		CreatedAt *Time `json:"createdAt"`
	}
	time1, err := stdlibtime.Parse(stdlibtime.RFC3339Nano, "2006-01-02T15:04:05.999999999+02:00")
	require.NoError(t, err)
	bytes, err := json.Marshal(tmpStruct{CreatedAt: New(time1)})
	require.NoError(t, err)
	assert.Equal(t, `{"createdAt":"2006-01-02T15:04:05.999999999+02:00"}`, string(bytes))
	text, err := New(time1.UTC()).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2006-01-02T13:04:05.999999999Z", string(text))

	var t1 tmpStruct
	require.NoError(t, json.Unmarshal(bytes, &t1))
	assert.True(t, time1.Equal(*t1.CreatedAt.Time))
	_, offset := t1.CreatedAt.Zone()
	assert.Equal(t, 2*60*60, offset)

	var t2 tmpStruct
	require.NoError(t, json.Unmarshal([]byte(`{"createdAt":1655303440552}`), &t2))
	assert.Equal(t, stdlibtime.UnixMilli(1655303440552).UTC(), *t2.CreatedAt.Time)
	var t3 tmpStruct
	require.NoError(t, json.Unmarshal([]byte(`{"createdAt":1655303440552373000}`), &t3))
	assert.Equal(t, stdlibtime.Unix(0, 1655303440552373000).UTC(), *t3.CreatedAt.Time)
	var t4 tmpStruct
	require.NoError(t, json.Unmarshal([]byte(`{"createdAt":null}`), &t4))
	assert.False(t, t4.CreatedAt.Valid())
	require.Error(t, json.Unmarshal([]byte(`{"createdAt":"yesterday"}`), &t4))

	bytes, err = json.Marshal(tmpStruct{CreatedAt: New(stdlibtime.Time{})})
	require.NoError(t, err)
	assert.Equal(t, `{"createdAt":null}`, string(bytes))
	bytes, err = json.Marshal(tmpStruct{CreatedAt: Now()})
	require.NoError(t, err)
	assert.Regexp(t, `{"createdAt":".+"}`, string(bytes))
}

func TestValid(t *testing.T) {
	t.Parallel()
	assert.True(t, Now().Valid())
	assert.False(t, (*Time)(nil).Valid())
	assert.False(t, new(Time).Valid())
	assert.False(t, New(stdlibtime.Time{}).Valid())
	assert.False(t, New(stdlibtime.Date(10000, 1, 1, 0, 0, 0, 0, stdlibtime.UTC)).Valid())
	assert.True(t, New(stdlibtime.Date(2024, 5, 1, 10, 0, 0, 0, stdlibtime.FixedZone("", -5*60*60))).Valid())
}
