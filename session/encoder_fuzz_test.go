package session

import (
	"testing"
	"time"
)

// FuzzDecode feeds arbitrary bytes to the record decoder. Invalid input
// must fail cleanly; anything accepted must survive a re-encode.
func FuzzDecode(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("{not json"))
	f.Add([]byte(`{"user_account":""}`))
	f.Add([]byte(`{"user_account":"alice","expires_at":"0001-01-01T00:00:00Z"}`))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if valid, err := Encode(&Session{
		UserAccount:  "alice",
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(24 * time.Hour),
		IPAddress:    "192.0.2.1",
	}); err == nil {
		f.Add(valid)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		sess, err := Decode(data)
		if err != nil {
			return
		}
		if sess.UserAccount == "" || sess.ExpiresAt.IsZero() {
			t.Fatalf("decoder accepted an incomplete record: %+v", sess)
		}

		encoded, err := Encode(sess)
		if err != nil {
			// Over-long accounts or unrepresentable times are rejected on write.
			return
		}
		again, err := Decode(encoded)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if again.UserAccount != sess.UserAccount || !again.ExpiresAt.Equal(sess.ExpiresAt) {
			t.Fatalf("roundtrip changed record: %+v -> %+v", sess, again)
		}
	})
}
