package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"math/big"
)

// CodeDigits is the length of a challenge code.
const CodeDigits = 6

var ten = big.NewInt(10)

// GenerateOTP returns a 6-digit numeric code (e.g. "042917") drawn from crypto/rand.
func GenerateOTP() (string, error) {
	return generateOTP(rand.Reader)
}

// generateOTP draws each digit independently and uniformly from 0-9. rand.Int rejects
// out-of-range samples, so no digit is favoured the way byte%10 would favour 0-5.
func generateOTP(r io.Reader) (string, error) {
	s := make([]byte, CodeDigits)
	for i := range s {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", err
		}
		s[i] = '0' + byte(n.Int64())
	}
	return string(s), nil
}

// HashOTP returns a SHA-256 hash of the code, hex-encoded. Only this digest is persisted.
func HashOTP(otp string) string {
	h := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(h[:])
}

// OTPEqual performs constant-time comparison of the provided code's hash with the stored hash.
func OTPEqual(providedOTP, storedHash string) bool {
	providedHash := HashOTP(providedOTP)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
