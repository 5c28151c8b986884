// Package osccrypto implements the per-packet AES-256-CTR framing layered
// on top of the OSC wire format: a monotonic 64-bit counter is folded into
// a base IV to derive a unique IV per packet, and the counter is prefixed
// to the ciphertext so a decoder can re-derive the same IV.
package osccrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

const (
	KeySize    = 32
	IVSize     = 16
	counterLen = 8
)

// KeyMaterial is the symmetric secret shared between the scheduler and
// firmware: a 256-bit key and a 128-bit base IV that per-packet counters
// are folded into.
type KeyMaterial struct {
	Key    [KeySize]byte
	BaseIV [IVSize]byte
}

// DeriveIV computes the per-packet IV for counter by adding counter to the
// base IV interpreted as two big-endian uint64 halves (high, low), with
// carry from low into high. counter == 0 is never used on the wire (the
// sender always increments before its first send) but DeriveIV itself is a
// pure function and accepts it.
func DeriveIV(baseIV [IVSize]byte, counter uint64) [IVSize]byte {
	high := binary.BigEndian.Uint64(baseIV[:8])
	low := binary.BigEndian.Uint64(baseIV[8:])

	newLow := low + counter
	if newLow < low {
		high++
	}

	var out [IVSize]byte
	binary.BigEndian.PutUint64(out[:8], high)
	binary.BigEndian.PutUint64(out[8:], newLow)
	return out
}

// Encryptor owns the monotonic counter for one sender. Counter starts at 0
// and is incremented before each send; it must never wrap back to 0.
type Encryptor struct {
	key     [KeySize]byte
	baseIV  [IVSize]byte
	counter uint64
}

// NewEncryptor constructs an Encryptor with its counter at 0 (no packet
// sent yet). The first Encrypt call will use counter 1.
func NewEncryptor(km KeyMaterial) *Encryptor {
	return &Encryptor{key: km.Key, baseIV: km.BaseIV}
}

// Encrypt increments the counter, derives this packet's IV, and returns
// counter(8 bytes big-endian) || ciphertext. Returns CounterExhausted if
// incrementing would wrap past the 64-bit range.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	if e.counter == ^uint64(0) {
		return nil, fleeterrors.New(fleeterrors.CounterExhausted, "osccrypto.Encrypt", "counter would wrap past max uint64")
	}
	e.counter++

	iv := DeriveIV(e.baseIV, e.counter)
	ciphertext, err := ctrTransform(e.key, iv, plaintext)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.EncryptionFailure, "osccrypto.Encrypt", err)
	}

	out := make([]byte, counterLen+len(ciphertext))
	binary.BigEndian.PutUint64(out[:counterLen], e.counter)
	copy(out[counterLen:], ciphertext)
	return out, nil
}

// Counter reports the counter value used by the most recent Encrypt call
// (0 if none yet sent).
func (e *Encryptor) Counter() uint64 { return e.counter }

// Decrypt reverses Encrypt: it reads the 8-byte counter prefix, re-derives
// the IV from baseIV, and runs CTR decrypt. Framed buffers shorter than 8
// bytes, or carrying counter 0, are rejected.
func Decrypt(km KeyMaterial, framed []byte) ([]byte, error) {
	if len(framed) < counterLen {
		return nil, fleeterrors.New(fleeterrors.EncryptionFailure, "osccrypto.Decrypt", "framed buffer shorter than counter prefix")
	}
	counter := binary.BigEndian.Uint64(framed[:counterLen])
	if counter == 0 {
		return nil, fleeterrors.New(fleeterrors.EncryptionFailure, "osccrypto.Decrypt", "counter 0 is never valid on the wire")
	}
	iv := DeriveIV(km.BaseIV, counter)
	plaintext, err := ctrTransform(km.Key, iv, framed[counterLen:])
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.EncryptionFailure, "osccrypto.Decrypt", err)
	}
	return plaintext, nil
}

// ctrTransform runs AES-256-CTR; encrypt and decrypt are the same
// operation under CTR mode.
func ctrTransform(key [KeySize]byte, iv [IVSize]byte, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, len(in))
	stream.XORKeyStream(out, in)
	return out, nil
}
