// Package xid generates short human-readable document numbers such as
// S-4F2A91BC, printed on receipts and quoted by staff over the phone.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// New returns prefix + "-" + 8 uppercase hex characters from a CSPRNG.
func New(prefix string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("xid: entropy source unavailable: %v", err))
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
