package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

const (
	PairingTokenBytes = 24
	SessionTokenBytes = 16
	DeviceIDBytes     = 8
)

// URLSafe returns n random bytes encoded as unpadded url-safe base64.
func URLSafe(n int) string {
	return base64.RawURLEncoding.EncodeToString(random(n))
}

// Hex returns n random bytes encoded as lowercase hex.
func Hex(n int) string {
	return hex.EncodeToString(random(n))
}

func NewPairingToken() string { return URLSafe(PairingTokenBytes) }

func NewSessionToken() string { return URLSafe(SessionTokenBytes) }

func NewDeviceID() string { return Hex(DeviceIDBytes) }

func random(n int) []byte {
	b := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms.
	if _, err := rand.Read(b); err != nil {
		panic("token: crypto/rand failed: " + err.Error())
	}
	return b
}
