package linkcodec

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// IDLength is the number of characters in a generated artifact identifier.
// Decode relies on it for the fixed-prefix fast path.
const IDLength = 8

// NewID returns a fresh URL-safe random identifier of IDLength characters.
func NewID() (string, error) {
	id, err := gonanoid.New(IDLength)
	if err != nil {
		return "", fmt.Errorf("generate identifier: %w", err)
	}
	return id, nil
}
