package vault

import (
	"fmt"
	"io"

	"notebox/internal/nb"
)

// EncryptedVault encrypts blobs with an Encryptor before handing them to
// the wrapped vault. Stored sizes are not known in advance, so the inner
// vault always receives -1.
type EncryptedVault struct {
	inner nb.Vault
	enc   nb.Encryptor
}

// NewEncryptedVault wraps inner so that every blob is stored encrypted.
func NewEncryptedVault(inner nb.Vault, enc nb.Encryptor) *EncryptedVault {
	return &EncryptedVault{inner: inner, enc: enc}
}

func (v *EncryptedVault) PutBlob(key string, r io.Reader, size int64) error {
	counted := &countingReader{r: r}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(v.enc.Encrypt(counted, pw))
	}()

	err := v.inner.PutBlob(key, pr, -1)
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return fmt.Errorf("storing encrypted blob: %w", err)
	}
	if size >= 0 && counted.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counted.n)
	}
	return nil
}

func (v *EncryptedVault) GetBlob(key string, w io.Writer) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(v.inner.GetBlob(key, pw))
	}()

	err := v.enc.Decrypt(pr, w)
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return fmt.Errorf("decrypting blob %s: %w", key, err)
	}
	return nil
}

func (v *EncryptedVault) HasBlob(key string) (bool, error) {
	return v.inner.HasBlob(key)
}

func (v *EncryptedVault) ValidateSetup() error {
	if !v.enc.IsConfigured() {
		return fmt.Errorf("encryption keys not found; run 'notebox drive keygen'")
	}
	return v.inner.ValidateSetup()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that EncryptedVault implements nb.Vault interface
var _ nb.Vault = (*EncryptedVault)(nil)
