package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToNDJSON serializes records as newline-delimited JSON, one record per line,
// the bulk-load input format the warehouse expects.
func ToNDJSON[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
