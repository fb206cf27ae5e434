package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("verbose", &buf)

	logger.Debug("hidden")
	require.Zero(t, buf.Len())

	logger.Info("enrolled", Account(common.HexToAddress("0x01")), KeyHash(common.HexToHash("0x02")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "faceguard", line["service"])
	require.Equal(t, common.HexToAddress("0x01").Hex(), line["account"])
	require.Equal(t, common.HexToHash("0x02").Hex(), line["face_key_hash"])
}
