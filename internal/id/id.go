package id

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// New returns a fresh 26-character lowercase identifier.
func New() string {
	value := uuid.New()
	return strings.ToLower(encoding.EncodeToString(value[:]))
}
