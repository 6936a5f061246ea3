// Package crypto decrypts the encrypted BMD animation containers.
package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// xorChainSeed is the initial chain value of the v12 cipher.
const xorChainSeed = 0x5E

// DecryptXOR decrypts BMD v12 data using chained XOR with a 16-byte key.
// For each byte:
//
//	out[i] = ((data[i] ^ key[i&15]) - chain) & 0xFF
//	chain = (data[i] + 0x3D) & 0xFF
func DecryptXOR(data []byte, key [16]byte) []byte {
	out := make([]byte, len(data))
	chain := byte(xorChainSeed)

	for i, b := range data {
		out[i] = (b ^ key[i&15]) - chain
		chain = b + 0x3D
	}
	return out
}

// ParseXORKey decodes a 16-byte hex key.
func ParseXORKey(s string) ([16]byte, error) {
	var key [16]byte
	if err := parseHexKey(s, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// ParseLEAKey decodes a 32-byte hex key.
func ParseLEAKey(s string) ([32]byte, error) {
	var key [32]byte
	if err := parseHexKey(s, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

func parseHexKey(s string, dst []byte) error {
	s = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(s), " ", ""), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("crypto: decode key: %w", err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("crypto: key is %d bytes, want %d", len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}
