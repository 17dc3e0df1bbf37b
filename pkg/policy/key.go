package policy

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// KeyFor derives a cache key from a base name and request parameters. Equal
// parameter sets give equal keys regardless of insertion order; an empty set
// gives base itself.
func KeyFor(base string, params map[string]any) string {
	if len(params) == 0 {
		return base
	}
	// encoding/json writes map keys in sorted order
	data, err := json.Marshal(params)
	if err != nil {
		// Unencodable parameters fall back to their key names only
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		data, _ = json.Marshal(names)
	}
	return base + ":" + digest(data)
}

func digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
