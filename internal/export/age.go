package export

import (
	"fmt"
	"io"

	"filippo.io/age"
)

// EncryptTo wraps w so that everything an Exporter writes to the returned
// writer is age-encrypted to recipient before reaching w, grounded on
// theanswer42-bt-go's AgeEncryptor.Encrypt. The caller must Close the
// returned writer to flush age's final MAC block.
func EncryptTo(w io.Writer, recipient string) (io.WriteCloser, error) {
	r, err := age.ParseX25519Recipient(recipient)
	if err != nil {
		return nil, fmt.Errorf("parse age recipient %q: %w", recipient, err)
	}
	enc, err := age.Encrypt(w, r)
	if err != nil {
		return nil, fmt.Errorf("create age-encrypted writer: %w", err)
	}
	return enc, nil
}
