package authz

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"arenachain/crypto"
)

// Sign produces the 65-byte authority signature over the canonical digest of
// msg within domain, returning the digest alongside so callers that persist
// or report it do not hash twice. This is the backend half of the protocol;
// engines only ever verify.
func Sign(domain Domain, msg Message, key *crypto.PrivateKey) ([]byte, [32]byte, error) {
	var digest [32]byte
	if key == nil {
		return nil, digest, fmt.Errorf("authz: nil signing key")
	}
	digest = Digest(domain, msg)
	sig, err := ethcrypto.Sign(digest[:], key.PrivateKey)
	if err != nil {
		return nil, digest, fmt.Errorf("authz: sign digest: %w", err)
	}
	return sig, digest, nil
}
