package recovery

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestPackedSignatureRoundTrip(t *testing.T) {
	in := PackedSignature{
		LivenessProof: bytes.Repeat([]byte{0x01}, 300),
		FaceSignature: bytes.Repeat([]byte{0x02}, 65),
		Nonce:         1<<63 + 5,
	}
	blob, err := EncodePackedSignature(in)
	require.NoError(t, err)

	out, err := DecodePackedSignature(blob)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeRejectsMalformedBlobs(t *testing.T) {
	valid, err := EncodePackedSignature(PackedSignature{LivenessProof: goodProof, FaceSignature: make([]byte, 65), Nonce: 1})
	require.NoError(t, err)

	wide, err := packedArgs.Pack([]byte{1}, []byte{2}, new(big.Int).Lsh(big.NewInt(1), 64))
	require.NoError(t, err)

	// Point the first dynamic offset far past the end of the blob.
	badOffset := append([]byte(nil), valid...)
	copy(badOffset[:32], common.LeftPadBytes([]byte{0xff, 0xff, 0xff, 0xff}, 32))

	cases := map[string][]byte{
		"empty":         nil,
		"short":         []byte{0x00, 0x01},
		"truncated":     valid[:len(valid)-40],
		"wide nonce":    wide,
		"bad offset":    badOffset,
		"one word only": make([]byte, 32),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePackedSignature(blob)
			require.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestFaceKeyHashOf(t *testing.T) {
	addr := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	require.Equal(t, crypto.Keccak256Hash(addr.Bytes()), FaceKeyHashOf(addr))
	require.NotEqual(t, FaceKeyHashOf(alice), FaceKeyHashOf(bob))
}
