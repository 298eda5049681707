package paper

import (
	"encoding/hex"
	"sort"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// KeyFunc maps a paper snapshot to a dedup key. Two snapshots with the same
// key are considered equivalent for recompute purposes.
type KeyFunc func(papers []Paper) string

// CountKey keys a snapshot by its size only. Same-count edits are invisible.
func CountKey(papers []Paper) string {
	return strconv.Itoa(len(papers))
}

// Fingerprint keys a snapshot by its sorted paper identities and versions,
// so that any add, remove or field update produces a new key.
// The empty snapshot has the empty fingerprint.
func Fingerprint(papers []Paper) string {
	if len(papers) == 0 {
		return ""
	}

	parts := make([]string, len(papers))
	for i, p := range papers {
		parts[i] = p.ID + ":" + strconv.Itoa(p.Version)
	}
	sort.Strings(parts)

	h, _ := blake2b.New256(nil)
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyFuncByName returns the named key function ("count" or "fingerprint").
func KeyFuncByName(name string) (KeyFunc, bool) {
	switch name {
	case "count":
		return CountKey, true
	case "", "fingerprint":
		return Fingerprint, true
	default:
		return nil, false
	}
}
