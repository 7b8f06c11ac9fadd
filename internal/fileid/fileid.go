// Package fileid mints the 32-hex-lowercase-character identifiers used to
// name WAL files, builders, SSTables, and manifest temp files.
package fileid

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a fresh 32-hex-lowercase id, suitable for naming a WAL,
// builder, SSTable, or manifest temp file.
func New() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
