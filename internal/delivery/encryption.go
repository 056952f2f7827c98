// Package delivery lo việc gửi email outbound qua pool inbox.
package delivery

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"copper_crm/internal/global"
)

// getEncryptionKey tạo encryption key từ secret của hệ thống
func getEncryptionKey() []byte {
	secret := global.ServerConfig.UnsubscribeSecret
	hash := sha256.Sum256([]byte(secret + "_inbox_credential_encryption_key"))
	return hash[:]
}

// EncryptCredential mã hóa mật khẩu SMTP/IMAP của inbox thành base64 string
func EncryptCredential(plain []byte) (string, error) {
	key := getEncryptionKey()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	// Nonce 12 bytes cho GCM
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptCredential giải mã mật khẩu inbox từ base64 string
func DecryptCredential(encryptedBase64 string) ([]byte, error) {
	key := getEncryptionKey()

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, data := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plain, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plain, nil
}

// ResolveCredential trả về mật khẩu dạng plain: giá trị lưu có thể là plain text
// (môi trường dev) hoặc đã mã hóa bằng EncryptCredential.
func ResolveCredential(stored string) string {
	if stored == "" {
		return ""
	}
	plain, err := DecryptCredential(stored)
	if err != nil {
		// Không phải ciphertext hợp lệ, coi như plain text
		return stored
	}
	return string(plain)
}
