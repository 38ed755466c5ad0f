package ports

// SecurityPort encrypts data at rest, such as the registration payload
// attached to a verification code.
type SecurityPort interface {
	// Encrypt seals plaintext. associatedData is authenticated but not
	// encrypted; the same value must be passed to Decrypt.
	Encrypt(plaintext, associatedData []byte) (ciphertext []byte, err error)

	// Decrypt opens a ciphertext produced by Encrypt.
	Decrypt(ciphertext, associatedData []byte) (plaintext []byte, err error)
}
