// Package variant builds variant ids. Documents sharing a variant id are
// renderings of the same record (other languages, mount points or access
// groups) and can be collapsed into one hit at query time.
package variant

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// IDBuilder is immutable and safe for concurrent use.
type IDBuilder struct {
	systemHash string
}

// NewIDBuilder scopes variant ids to one installation, named systemName.
func NewIDBuilder(systemName string) *IDBuilder {
	sum := sha1.Sum([]byte(systemName))
	return &IDBuilder{systemHash: hex.EncodeToString(sum[:])}
}

// SystemHash returns the installation hash prefixed to every variant id.
func (b *IDBuilder) SystemHash() string {
	return b.systemHash
}

// BuildFromTypeAndUID returns "<systemHash>/<type>/<uid>".
func (b *IDBuilder) BuildFromTypeAndUID(recordType string, uid int) string {
	return b.systemHash + "/" + recordType + "/" + strconv.Itoa(uid)
}
