package authz

import (
	"crypto/subtle"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected recovery-id form: r (32) || s (32) || v (1).
const SignatureLength = 65

// Verifier recovers the signer of a digest and checks it against the single
// configured trusted authority. Verification has no side effects; the only
// mutable state is the authority itself, rotatable by the module admin.
type Verifier struct {
	mu        sync.RWMutex
	authority [20]byte
	set       bool
}

// NewVerifier creates a verifier trusting the given authority address.
func NewVerifier(authority [20]byte) *Verifier {
	return &Verifier{authority: authority, set: true}
}

// Authority returns the currently trusted address.
func (v *Verifier) Authority() [20]byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authority
}

// Rotate replaces the trusted authority. Unconsumed signatures produced under
// the old key stop verifying; nonces already consumed are unaffected.
func (v *Verifier) Rotate(next [20]byte) [20]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	previous := v.authority
	v.authority = next
	v.set = true
	return previous
}

// Verify recovers the address that signed digest and accepts only the trusted
// authority. Malformed signatures, failed recovery and authority mismatch all
// collapse into ErrBadSignature so a caller learns nothing about which check
// tripped. The comparison runs in constant time and the full recovery path
// executes on every call to keep the failure shape uniform.
func (v *Verifier) Verify(digest [32]byte, sig []byte) error {
	v.mu.RLock()
	authority := v.authority
	configured := v.set
	v.mu.RUnlock()
	if !configured {
		return ErrNotConfigured
	}

	recovered, ok := recoverSigner(digest, sig)
	match := subtle.ConstantTimeCompare(recovered[:], authority[:]) == 1
	if !ok || !match {
		return ErrBadSignature
	}
	return nil
}

func recoverSigner(digest [32]byte, sig []byte) ([20]byte, bool) {
	var out [20]byte
	if len(sig) != SignatureLength {
		return out, false
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	// Accept both 27/28 and 0/1 recovery ids.
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return out, false
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return out, true
}

// CheckDeadline enforces the expiry gate. The clock must come from the
// executing environment, never from the caller.
func CheckDeadline(now time.Time, deadline int64) error {
	if now.Unix() > deadline {
		return ErrExpired
	}
	return nil
}
