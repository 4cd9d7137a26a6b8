package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	frame, err := Encode(JoinProject, "42")
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"join_project","data":"42"}`, string(frame))

	env, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, JoinProject, env.Event)
	id, err := env.StringData()
	require.NoError(t, err)
	require.Equal(t, "42", id)
}

func TestEncodeNoPayload(t *testing.T) {
	t.Parallel()

	frame, err := Encode(Ping, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"ping"}`, string(frame))
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`not json`, `{}`, `{"event":""}`, `[1,2]`} {
		_, err := Decode([]byte(raw))
		require.ErrorIs(t, err, ErrMalformed, raw)
	}

	env, err := Decode([]byte(`{"event":"join_project","data":{"id":"42"}}`))
	require.NoError(t, err)
	_, err = env.StringData()
	require.ErrorIs(t, err, ErrMalformed)
}
