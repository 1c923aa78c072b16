package helper

import (
	"fmt"

	"github.com/google/uuid"
)

// NewDocumentID returns a random unique id for an ingested document.
func NewDocumentID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate document id: %v", err)
	}
	return id.String(), nil
}
