package recovery

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// packedArgs mirrors abi.encode(bytes livenessProof, bytes faceSignature, uint256 nonce).
var packedArgs = func() abi.Arguments {
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	uintT, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "livenessProof", Type: bytesT},
		{Name: "faceSignature", Type: bytesT},
		{Name: "nonce", Type: uintT},
	}
}()

// EncodePackedSignature ABI-encodes p.
func EncodePackedSignature(p PackedSignature) ([]byte, error) {
	out, err := packedArgs.Pack(p.LivenessProof, p.FaceSignature, new(big.Int).SetUint64(p.Nonce))
	if err != nil {
		return nil, fmt.Errorf("pack signature: %w", err)
	}
	return out, nil
}

// DecodePackedSignature decodes an ABI-encoded signature blob. Every failure,
// including a nonce that does not fit in 64 bits, is ErrMalformedSignature.
func DecodePackedSignature(data []byte) (p PackedSignature, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = PackedSignature{}, fmt.Errorf("%w: %v", ErrMalformedSignature, r)
		}
	}()

	values, err := packedArgs.Unpack(data)
	if err != nil {
		return PackedSignature{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(values) != len(packedArgs) {
		return PackedSignature{}, fmt.Errorf("%w: got %d values", ErrMalformedSignature, len(values))
	}

	proof, ok := values[0].([]byte)
	if !ok {
		return PackedSignature{}, fmt.Errorf("%w: liveness proof", ErrMalformedSignature)
	}
	sig, ok := values[1].([]byte)
	if !ok {
		return PackedSignature{}, fmt.Errorf("%w: face signature", ErrMalformedSignature)
	}
	nonce, ok := values[2].(*big.Int)
	if !ok || !nonce.IsUint64() {
		return PackedSignature{}, fmt.Errorf("%w: nonce out of range", ErrMalformedSignature)
	}

	return PackedSignature{LivenessProof: proof, FaceSignature: sig, Nonce: nonce.Uint64()}, nil
}
