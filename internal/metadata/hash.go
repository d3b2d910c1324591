package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix leaves room for an
// algorithm change without colliding with old journal rows.
const (
	DomainNotification = "nbsync/notification/v1"
	DomainMetadata     = "nbsync/metadata/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the domain-separated hash of v's canonical form.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// NotificationID computes the journal identity of one delivered notification.
// seq keeps two byte-identical notifications (a save sent twice) distinct.
func NotificationID(registration, method string, params any, seq int64) (string, error) {
	canonical, err := MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("NotificationID: %w", err)
	}
	obj := Object{
		"registration": String(registration),
		"method":       String(method),
		"params":       String(canonical),
		"seq":          Int(seq),
	}
	return Fingerprint(DomainNotification, obj)
}
