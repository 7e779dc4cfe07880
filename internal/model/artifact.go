package model

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ArtifactTokenLength is the length of a token's canonical hex form.
const ArtifactTokenLength = 32

// ArtifactToken identifies one temporary artifact. It carries 128 random
// bits rendered as lowercase hex without separators.
type ArtifactToken string

// NewArtifactToken returns a fresh random token.
func NewArtifactToken() ArtifactToken {
	id := uuid.New()
	return ArtifactToken(hex.EncodeToString(id[:]))
}

// ParseArtifactToken validates s and returns it as a token. Only the canonical
// form produced by NewArtifactToken is accepted, so a token can always be used
// as a file name component.
func ParseArtifactToken(s string) (ArtifactToken, bool) {
	if len(s) != ArtifactTokenLength || strings.ToLower(s) != s {
		return "", false
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", false
	}
	return ArtifactToken(s), true
}

// String returns the string representation of ArtifactToken
func (t ArtifactToken) String() string {
	return string(t)
}
