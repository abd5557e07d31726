package device

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace seeds stable ID derivation. Changing it rotates every device ID.
var idNamespace = uuid.MustParse("8f6f3b0a-61c4-4f3e-9f26-5a1d9c7b42e0")

// DeriveID maps a platform natural key (simulator UDID, AVD name or emulator
// serial) to the stable device identifier. Derivation is one-way and
// case-insensitive: equal keys always yield the same ID, so identity survives
// re-listing even when the key came from a different view of the device.
func DeriveID(naturalKey string) string {
	key := strings.ToLower(strings.TrimSpace(naturalKey))
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}
