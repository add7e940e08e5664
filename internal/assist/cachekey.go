package assist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CacheKey derives a deterministic key from the full request shape.
// json.Marshal writes map keys in sorted order, so equal requests always
// encode to the same bytes regardless of form-data insertion order.
func CacheKey(req Request) string {
	encoded, err := json.Marshal(struct {
		Type     SuggestionType `json:"type"`
		FormData any            `json:"formData"`
		Context  RequestContext `json:"context"`
	}{req.Type, req.FormData, req.Context})
	if err != nil {
		// Snapshot values are JSON-decoded data; this cannot fail for them.
		return string(req.Type)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
