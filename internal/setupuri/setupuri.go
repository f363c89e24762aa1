// Package setupuri encodes connection settings into a passphrase-protected
// pairing URI so a second device can be onboarded without retyping keys.
//
// Wire layout of the data param (base64url, no padding):
//
//	[version 1B][salt 16B][iv 12B][ciphertext]
//
// Ciphertext is AES-GCM-256 over the JSON payload; the key is derived from
// the passphrase with PBKDF2-SHA256.
package setupuri

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Scheme = "obsidian"
	Host   = "setup-sync-workers"

	formatVersion = 1
	saltSize      = 16
	ivSize        = 12
	keySize       = 32
	pbkdf2Iters   = 100000
)

var (
	ErrBadURI        = errors.New("setupuri: not a pairing uri")
	ErrBadVersion    = errors.New("setupuri: unsupported format version")
	ErrBadPassphrase = errors.New("setupuri: wrong passphrase or corrupt payload")
)

// Payload is the JSON carried inside the ciphertext.
type Payload struct {
	ServerURL string `json:"serverUrl"`
	APIKey    string `json:"apiKey"`
	VaultID   string `json:"vaultId"`
	Version   int    `json:"version"`
}

// Encode builds the pairing URI for a payload.
func Encode(p *Payload, passphrase string) (string, error) {
	p.Version = formatVersion
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nil, iv, plaintext, nil)

	blob := make([]byte, 0, 1+saltSize+ivSize+len(ciphertext))
	blob = append(blob, formatVersion)
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, ciphertext...)

	data := base64.RawURLEncoding.EncodeToString(blob)
	return fmt.Sprintf("%s://%s?data=%s", Scheme, Host, data), nil
}

// Decode parses and decrypts a pairing URI.
func Decode(uri, passphrase string) (*Payload, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURI, err)
	}
	if u.Scheme != Scheme || u.Host != Host {
		return nil, ErrBadURI
	}
	data := u.Query().Get("data")
	if data == "" {
		return nil, ErrBadURI
	}

	blob, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		// Tolerate padded input from copy-paste.
		if blob, err = base64.URLEncoding.DecodeString(data); err != nil {
			return nil, fmt.Errorf("%w: bad base64", ErrBadURI)
		}
	}
	if len(blob) < 1+saltSize+ivSize {
		return nil, fmt.Errorf("%w: truncated payload", ErrBadURI)
	}
	if blob[0] != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, blob[0])
	}

	salt := blob[1 : 1+saltSize]
	iv := blob[1+saltSize : 1+saltSize+ivSize]
	ciphertext := blob[1+saltSize+ivSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrBadPassphrase
	}

	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return &p, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iters, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
