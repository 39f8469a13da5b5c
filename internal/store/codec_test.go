package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := DefaultState()
	data, err := EncodeState(s)
	require.NoError(t, err)

	got, err := DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestEncodeNoActiveGameIsNull(t *testing.T) {
	s := AppState{Games: []Game{}, ActiveGameID: ""}
	data, err := EncodeState(s)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "null", string(raw["activeGameId"]))

	got, err := DecodeState(data)
	require.NoError(t, err)
	assert.Empty(t, got.ActiveGameID)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := DecodeState([]byte(`{"games": [`))
	require.Error(t, err)
}
