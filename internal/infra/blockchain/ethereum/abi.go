package ethereum

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

const (
	// wordSize is the size of an ABI encoded static argument.
	wordSize = 32

	// rayDecimals is the number of decimals of the fixed point ratios used
	// by pool administration calls.
	rayDecimals = 27
)

// selector returns the 4-byte function selector of a canonical Solidity
// signature such as "transfer(address,uint256)".
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// encodeCall concatenates the selector of signature with already encoded words.
func encodeCall(signature string, words ...[wordSize]byte) []byte {
	data := make([]byte, 0, 4+len(words)*wordSize)
	data = append(data, selector(signature)...)
	for _, w := range words {
		data = append(data, w[:]...)
	}
	return data
}

// encodeUint256 encodes a base 10 integer as a uint256 word.
func encodeUint256(value string) ([wordSize]byte, error) {
	n, err := uint256.FromDecimal(value)
	if err != nil {
		return [wordSize]byte{}, fmt.Errorf("parse %q as uint256: %w", value, err)
	}
	return n.Bytes32(), nil
}

// encodeBytes32 encodes a short string as a left-aligned bytes32 word.
func encodeBytes32(value string) ([wordSize]byte, error) {
	var w [wordSize]byte
	if len(value) > wordSize {
		return w, fmt.Errorf("%q does not fit in bytes32", value)
	}
	copy(w[:], value)
	return w, nil
}

// parseRay converts a decimal ratio such as "0.25" into a 27 decimals fixed
// point integer. Plain integers are taken as already scaled.
func parseRay(value string) (*uint256.Int, error) {
	whole, frac, isDecimal := strings.Cut(value, ".")
	if !isDecimal {
		return uint256.FromDecimal(value)
	}

	if len(frac) > rayDecimals {
		return nil, fmt.Errorf("%q has more than %d decimals", value, rayDecimals)
	}
	if whole == "" {
		whole = "0"
	}

	scaled, err := uint256.FromDecimal(whole + frac + strings.Repeat("0", rayDecimals-len(frac)))
	if err != nil {
		return nil, fmt.Errorf("parse %q as ray: %w", value, err)
	}
	return scaled, nil
}
