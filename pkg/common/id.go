package common

import (
	"crypto/md5"
	"encoding/hex"
)

// HashID returns the deterministic identifier for the given key: the
// first 12 hex characters of its MD5 digest. Chunk, entity, and
// community ids are all derived this way, so repeated builds over the
// same corpus produce identical identifiers.
func HashID(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}
