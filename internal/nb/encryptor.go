package nb

import "io"

// Encryptor encrypts blobs at rest for the hosted drive relay.
type Encryptor interface {
	// Setup generates key material. Called by `notebox drive keygen`.
	Setup() error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error

	// IsConfigured returns true if the key material exists.
	IsConfigured() bool
}
