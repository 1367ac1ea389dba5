package lifecycle

import "math/rand"

// Tracking codes are short opaque tokens both parties can read out loud.
// The alphabet drops 0/O, 1/I and similar look-alikes.
const (
	trackingAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	trackingCodeLength = 6
	trackingCodePrefix = "LE-"
)

// issueTrackingCodeLocked generates a code and retries until it does not
// collide with any existing order. Caller holds m.mu.
func (m *Manager) issueTrackingCodeLocked() string {
	for {
		code := trackingCodePrefix + randomToken(trackingCodeLength)
		if _, taken := m.byCode[code]; !taken {
			return code
		}
	}
}

func randomToken(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = trackingAlphabet[rand.Intn(len(trackingAlphabet))]
	}
	return string(buf)
}
