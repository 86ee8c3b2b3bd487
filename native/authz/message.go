package authz

import (
	"bytes"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// signedMessagePrefix is the personal-message prefix applied over the inner
// 32-byte digest before the outer hash, matching what hardware and browser
// wallets produce for eth_sign-style payloads.
const signedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// Domain scopes a signature to one module deployment on one network. Contract
// is the deployed module identity; ChainID is read live from the execution
// context so a signature can never replay on a forked chain.
type Domain struct {
	ChainID  uint64
	Contract [20]byte
}

// Message is the full logical statement a trusted authority signs: account,
// at nonce, approves payload, valid until deadline, within domain.
type Message struct {
	Account  [20]byte
	Nonce    uint64
	Deadline int64
	Payload  Payload
}

// Packed encoding rules, fixed and documented; both signer and verifier must
// produce byte-identical output for the same logical inputs:
//   - addresses: 20 raw bytes
//   - unsigned integers (including the kind tag and array lengths): 32-byte
//     big-endian
//   - variable-length strings: keccak256 sub-digest (32 bytes)
//   - arrays: 32-byte big-endian element count, then elements in order

func packAddress(buf *bytes.Buffer, a [20]byte) {
	buf.Write(a[:])
}

func packUint(buf *bytes.Buffer, v uint64) {
	packBig(buf, new(big.Int).SetUint64(v))
}

func packBig(buf *bytes.Buffer, v *big.Int) {
	var word [32]byte
	if v != nil && v.Sign() > 0 {
		v.FillBytes(word[:])
	}
	buf.Write(word[:])
}

func packString(buf *bytes.Buffer, s string) {
	buf.Write(ethcrypto.Keccak256([]byte(s)))
}

// Pack renders the canonical byte sequence for the message within the domain.
// Field order: contract, chain id, kind tag, account, nonce, deadline, then
// the payload's own packed fields.
func Pack(domain Domain, msg Message) []byte {
	buf := &bytes.Buffer{}
	packAddress(buf, domain.Contract)
	packUint(buf, domain.ChainID)
	packUint(buf, uint64(msg.Payload.Kind()))
	packAddress(buf, msg.Account)
	packUint(buf, msg.Nonce)
	packUint(buf, uint64(msg.Deadline))
	msg.Payload.encode(buf)
	return buf.Bytes()
}

// Digest hashes the packed message and wraps the inner hash in the signed
// message prefix. The result is what the trusted authority signs and what the
// verifier recovers against.
func Digest(domain Domain, msg Message) [32]byte {
	inner := ethcrypto.Keccak256(Pack(domain, msg))
	outer := ethcrypto.Keccak256(append([]byte(signedMessagePrefix), inner...))
	var digest [32]byte
	copy(digest[:], outer)
	return digest
}
