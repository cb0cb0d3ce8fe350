package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/kodexhq/kodex/domain/unit"
)

// ContentHash computes the SHA-256 digest used to detect a modified unit:
// identifier ++ source ++ canonicalized metadata ++ sorted dependency list.
func ContentHash(u unit.ExtractedUnit) string {
	h := sha256.New()
	h.Write([]byte(u.Identifier()))
	if src := u.SourceCode(); src != nil {
		h.Write([]byte(*src))
	}
	h.Write(canonicalMetadata(u.Metadata()))
	h.Write(canonicalDependencies(u.Dependencies()))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalMetadata serializes metadata with sorted keys so hash order is
// stable regardless of map iteration order.
func canonicalMetadata(metadata map[string]any) []byte {
	if len(metadata) == 0 {
		return []byte("{}")
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, metadata[k])
	}
	b, _ := json.Marshal(ordered)
	return b
}

func canonicalDependencies(deps []unit.Dependency) []byte {
	sorted := append([]unit.Dependency(nil), deps...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Target != sorted[j].Target {
			return sorted[i].Target < sorted[j].Target
		}
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		return sorted[i].Via < sorted[j].Via
	})
	b, _ := json.Marshal(sorted)
	return b
}
