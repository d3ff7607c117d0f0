package plan

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

const fingerprintPrefix = "blake3:"

// Fingerprint returns the content fingerprint of data ("blake3:<hex>").
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return fingerprintPrefix + hex.EncodeToString(sum[:])
}

// Short returns the first 12 hex digits of a fingerprint, for display.
func Short(fp string) string {
	hexPart := fp
	if len(fp) > len(fingerprintPrefix) && fp[:len(fingerprintPrefix)] == fingerprintPrefix {
		hexPart = fp[len(fingerprintPrefix):]
	}
	if len(hexPart) > 12 {
		return hexPart[:12]
	}
	return hexPart
}
