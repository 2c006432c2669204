package utils

import "github.com/google/uuid"

// UUIDGenerator issues time-ordered identifiers for sessions and requests.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a UUIDv7 string, or a random UUIDv4 if the clock source
// fails.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// NewID is Generate on a shared generator.
func NewID() string {
	return defaultGenerator.Generate()
}

var defaultGenerator = NewUUIDGenerator()
