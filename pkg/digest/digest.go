// Package digest computes content fingerprints of company records.
//
// A digest is the SHA256 of a canonical JSON rendering: object keys sorted,
// null values dropped, and objects that end up empty dropped as well, so that
// key order and null-versus-absent differences never register as a change.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

// Hasher digests records, ignoring the configured dot-notation field paths
// (e.g. "filings" or "addresses.email_address").
type Hasher struct {
	exclude map[string]bool
}

func NewHasher(excludeFields map[string]bool) *Hasher {
	return &Hasher{exclude: excludeFields}
}

// Record digests a company record. A nil record has the digest of null.
func (h *Hasher) Record(record *models.CompanyRecord) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return h.JSON(data)
}

// JSON digests raw JSON.
func (h *Hasher) JSON(data []byte) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", err
	}
	return Sum(Canonical(value, h.exclude)), nil
}

// Equal reports whether two records digest identically.
func (h *Hasher) Equal(a, b *models.CompanyRecord) (bool, error) {
	da, err := h.Record(a)
	if err != nil {
		return false, err
	}
	db, err := h.Record(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

// Sum hashes a canonical string.
func Sum(canonical string) string {
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}

// Canonical renders decoded JSON deterministically.
func Canonical(data any, excludeFields map[string]bool) string {
	var sb strings.Builder
	writeValue(&sb, prune(data, excludeFields, ""))
	return sb.String()
}

// prune drops nulls, excluded paths, and objects emptied by pruning.
func prune(data any, excludeFields map[string]bool, currentPath string) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			fieldPath := k
			if currentPath != "" {
				fieldPath = currentPath + "." + k
			}
			if shouldExcludeField(fieldPath, excludeFields) {
				continue
			}
			pruned := prune(child, excludeFields, fieldPath)
			if pruned == nil {
				continue
			}
			out[k] = pruned
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, child := range v {
			// array elements share the parent path; indices cannot be excluded
			pruned := prune(child, excludeFields, currentPath)
			if pruned == nil {
				pruned = map[string]any{}
			}
			out = append(out, pruned)
		}
		return out
	default:
		return v
	}
}

func writeValue(sb *strings.Builder, data any) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			sb.Write(keyJSON)
			sb.WriteByte(':')
			writeValue(sb, v[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, child := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeValue(sb, child)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(v)
		sb.Write(b)
	}
}

// shouldExcludeField matches exact paths and children of excluded objects.
func shouldExcludeField(fieldPath string, excludeFields map[string]bool) bool {
	if len(excludeFields) == 0 {
		return false
	}
	if excludeFields[fieldPath] {
		return true
	}
	for excluded := range excludeFields {
		if strings.HasPrefix(fieldPath, excluded+".") {
			return true
		}
	}
	return false
}
