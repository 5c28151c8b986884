// Package secrets loads the OSC AES key/IV material the scheduler and
// monitor need, without ever storing it in the TOML config in plaintext.
// Production reads an age-encrypted key file decrypted with an
// operator-held identity. The decrypted plaintext is handled as a plain
// byte slice rather than a locked, swap-protected secret buffer, since
// it is a short-lived hex string held only long enough to build an
// osccrypto.KeyMaterial, not a long-lived credential bundle.
package secrets

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"filippo.io/age"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
)

// DecryptKeyFile decrypts the age-encrypted file at ciphertextPath using
// the identity (or identities) loaded from identityPath, an age identity
// file in the standard "AGE-SECRET-KEY-1..." line format produced by
// age-keygen. The decrypted plaintext is returned verbatim.
func DecryptKeyFile(ciphertextPath, identityPath string) ([]byte, error) {
	identities, err := loadIdentities(identityPath)
	if err != nil {
		return nil, err
	}

	ciphertext, err := os.Open(ciphertextPath)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "secrets.DecryptKeyFile", err)
	}
	defer ciphertext.Close()

	reader, err := age.Decrypt(ciphertext, identities...)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "secrets.DecryptKeyFile", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "secrets.DecryptKeyFile", err)
	}
	return plaintext, nil
}

func loadIdentities(identityPath string) ([]age.Identity, error) {
	f, err := os.Open(identityPath)
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "secrets.loadIdentities", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(bufio.NewReader(f))
	if err != nil {
		return nil, fleeterrors.Wrap(fleeterrors.IoError, "secrets.loadIdentities", err)
	}
	if len(identities) == 0 {
		return nil, fleeterrors.New(fleeterrors.IoError, "secrets.loadIdentities", "identity file contains no usable identities")
	}
	return identities, nil
}

// EncryptKeyFile encrypts plaintext to recipient's age public key and
// writes it to ciphertextPath. Used by the operator tooling that
// provisions a new key file; never called from the scheduler or monitor
// at runtime.
func EncryptKeyFile(ciphertextPath string, plaintext []byte, recipientKey string) error {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "secrets.EncryptKeyFile", err)
	}

	var buf bytes.Buffer
	writer, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "secrets.EncryptKeyFile", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "secrets.EncryptKeyFile", err)
	}
	if err := writer.Close(); err != nil {
		return fleeterrors.Wrap(fleeterrors.IoError, "secrets.EncryptKeyFile", err)
	}

	return os.WriteFile(ciphertextPath, buf.Bytes(), 0o600)
}
