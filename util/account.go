package util

import (
	"bytes"
	"errors"
	"math/big"
)

// accountVersion prefixes every account id payload
// so account ids are visually distinct from raw hashes.
const accountVersion = 0x1c

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// AccountFromPublicKey derives the textual account id of a public key.
// The id is base58(version + hash160(pubKey) + checksum).
func AccountFromPublicKey(pubKey []byte) string {
	payload := append([]byte{accountVersion}, Hash160(pubKey)...)
	payload = append(payload, Hash256(payload)[:4]...)
	return EncodeBase58(payload)
}

// AccountValid checks if an account id is well formed.
func AccountValid(account string) bool {
	if len(account) == 0 {
		return false
	}

	buffer, err := DecodeBase58(account)
	if err != nil {
		return false
	}

	if len(buffer) < 5 || buffer[0] != accountVersion {
		return false
	}

	checksum := Hash256(buffer[:len(buffer)-4])
	return bytes.Equal(buffer[len(buffer)-4:], checksum[:4])
}

// EncodeBase58 returns base58 representation of data bytes.
func EncodeBase58(data []byte) string {
	x := new(big.Int).SetBytes(data)
	radix := big.NewInt(58)
	mod := new(big.Int)

	encoded := []byte{}
	for x.Sign() > 0 {
		x.DivMod(x, radix, mod)
		encoded = append(encoded, base58Alphabet[mod.Int64()])
	}

	// Leading zero bytes map to the first alphabet symbol.
	for _, b := range data {
		if b != 0x00 {
			break
		}
		encoded = append(encoded, base58Alphabet[0])
	}

	for i, j := 0, len(encoded)-1; i < j; i, j = i+1, j-1 {
		encoded[i], encoded[j] = encoded[j], encoded[i]
	}

	return string(encoded)
}

// DecodeBase58 returns data bytes of a base58 string.
func DecodeBase58(str string) ([]byte, error) {
	x := big.NewInt(0)
	radix := big.NewInt(58)

	for _, c := range []byte(str) {
		idx := bytes.IndexByte([]byte(base58Alphabet), c)
		if idx == -1 {
			return nil, errors.New("invalid base58 character")
		}

		x.Mul(x, radix)
		x.Add(x, big.NewInt(int64(idx)))
	}

	decoded := x.Bytes()

	leadingZeros := 0
	for _, c := range []byte(str) {
		if c != base58Alphabet[0] {
			break
		}
		leadingZeros++
	}

	return append(make([]byte, leadingZeros), decoded...), nil
}
