package secrets

import (
	"encoding/hex"
	"os"

	"github.com/joho/godotenv"

	"github.com/large-farva/fleetcore/internal/fleeterrors"
	"github.com/large-farva/fleetcore/internal/osccrypto"
)

// LoadDotEnv reads a .env file into the process environment for local/dev
// overrides. If no paths are given, ".env" is used. A missing or
// unreadable file is returned as an error; the monitor and scheduler
// commands call it only when --env-file is given and exit on that error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// KeyMaterialFromEnv builds an osccrypto.KeyMaterial from the OSC_KEY_HEX
// and OSC_IV_HEX environment variables, for local development where
// reaching for an age identity file is unnecessary overhead.
func KeyMaterialFromEnv() (osccrypto.KeyMaterial, error) {
	keyHex := os.Getenv("OSC_KEY_HEX")
	ivHex := os.Getenv("OSC_IV_HEX")
	if keyHex == "" || ivHex == "" {
		return osccrypto.KeyMaterial{}, fleeterrors.New(fleeterrors.IoError, "secrets.KeyMaterialFromEnv", "OSC_KEY_HEX and OSC_IV_HEX must both be set")
	}
	return parseKeyMaterial(keyHex, ivHex)
}

// KeyMaterialFromAgeFile decrypts an age-encrypted key bundle (as produced
// by EncryptKeyFile, containing "<key_hex>\n<iv_hex>\n") using the identity
// file named by the AGE_IDENTITY_FILE environment variable, falling back
// to the identityPathOverride argument when that variable is unset.
func KeyMaterialFromAgeFile(ciphertextPath, identityPathOverride string) (osccrypto.KeyMaterial, error) {
	identityPath := GetEnv("AGE_IDENTITY_FILE", identityPathOverride)
	if identityPath == "" {
		return osccrypto.KeyMaterial{}, fleeterrors.New(fleeterrors.IoError, "secrets.KeyMaterialFromAgeFile", "no age identity file configured")
	}

	plaintext, err := DecryptKeyFile(ciphertextPath, identityPath)
	if err != nil {
		return osccrypto.KeyMaterial{}, err
	}

	keyHex, ivHex, err := splitKeyBundle(plaintext)
	if err != nil {
		return osccrypto.KeyMaterial{}, err
	}
	return parseKeyMaterial(keyHex, ivHex)
}

func splitKeyBundle(plaintext []byte) (keyHex, ivHex string, err error) {
	lines := []string{}
	start := 0
	for i, b := range plaintext {
		if b == '\n' {
			lines = append(lines, string(plaintext[start:i]))
			start = i + 1
		}
	}
	if start < len(plaintext) {
		lines = append(lines, string(plaintext[start:]))
	}
	if len(lines) < 2 {
		return "", "", fleeterrors.New(fleeterrors.IoError, "secrets.splitKeyBundle", "key bundle must contain key_hex and iv_hex on separate lines")
	}
	return lines[0], lines[1], nil
}

func parseKeyMaterial(keyHex, ivHex string) (osccrypto.KeyMaterial, error) {
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return osccrypto.KeyMaterial{}, fleeterrors.Wrap(fleeterrors.IoError, "secrets.parseKeyMaterial", err)
	}
	if len(keyBytes) != 32 {
		return osccrypto.KeyMaterial{}, fleeterrors.Newf(fleeterrors.IoError, "secrets.parseKeyMaterial", "key must decode to 32 bytes, got %d", len(keyBytes))
	}

	ivBytes, err := hex.DecodeString(ivHex)
	if err != nil {
		return osccrypto.KeyMaterial{}, fleeterrors.Wrap(fleeterrors.IoError, "secrets.parseKeyMaterial", err)
	}
	if len(ivBytes) != 16 {
		return osccrypto.KeyMaterial{}, fleeterrors.Newf(fleeterrors.IoError, "secrets.parseKeyMaterial", "iv must decode to 16 bytes, got %d", len(ivBytes))
	}

	var km osccrypto.KeyMaterial
	copy(km.Key[:], keyBytes)
	copy(km.BaseIV[:], ivBytes)
	return km, nil
}
