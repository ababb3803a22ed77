// Package auth signs the handshake frame the Upstream Session sends
// immediately after the socket opens, using RSA-PSS over SHA-256.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// Credentials holds the key id and private key used to sign the upstream
// handshake frame.
type Credentials struct {
	KeyID      string          // vendor-issued API key id
	PrivateKey *rsa.PrivateKey // RSA private key for signing
}

// LoadCredentials loads credentials from a key id and a PEM private key path.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, fmt.Errorf("key id is required")
	}
	if privateKeyPath == "" {
		return nil, fmt.Errorf("private key path is required")
	}

	privateKey, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &Credentials{
		KeyID:      keyID,
		PrivateKey: privateKey,
	}, nil
}

// LoadPrivateKey loads an RSA private key from a PEM file, accepting either
// PKCS#8 or PKCS#1 encoding.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return rsaKey, nil
}

// HandshakeFrame is the first frame the bridge sends after the upstream
// socket opens: a signed claim that this connection speaks for clientID.
type HandshakeFrame struct {
	KeyID       string
	ClientID    string
	TimestampMs int64
	Signature   string // base64-encoded RSA-PSS signature
}

// SignHandshake signs timestamp_ms + "CONNECT" + client_id with RSA-PSS/
// SHA-256 and returns the frame ready to send as the upstream handshake.
func (c *Credentials) SignHandshake(clientID string) (HandshakeFrame, error) {
	timestampMs := time.Now().UnixMilli()

	sig, err := c.sign(timestampMs, clientID)
	if err != nil {
		return HandshakeFrame{}, err
	}

	return HandshakeFrame{
		KeyID:       c.KeyID,
		ClientID:    clientID,
		TimestampMs: timestampMs,
		Signature:   sig,
	}, nil
}

// Verify checks that Signature is a valid RSA-PSS signature over the
// frame's claimed timestamp and client id under pub. Used by test fixtures
// standing in for the vendor endpoint.
func (f HandshakeFrame) Verify(pub *rsa.PublicKey) error {
	sig, err := base64.StdEncoding.DecodeString(f.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	hashed := sha256.Sum256([]byte(fmt.Sprintf("%d%s%s", f.TimestampMs, "CONNECT", f.ClientID)))
	return rsa.VerifyPSS(pub, crypto.SHA256, hashed[:], sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
}

func (c *Credentials) sign(timestampMs int64, clientID string) (string, error) {
	message := fmt.Sprintf("%d%s%s", timestampMs, "CONNECT", clientID)
	hashed := sha256.Sum256([]byte(message))

	signature, err := rsa.SignPSS(
		rand.Reader,
		c.PrivateKey,
		crypto.SHA256,
		hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return "", fmt.Errorf("sign handshake: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}
