package lib

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/relaygate/relaygate/models"
	"gorm.io/gorm"
)

// HashKey is the one-way function applied to every issued key. Lookups go
// through the digest, never the plaintext.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ak_" + hex.EncodeToString(buf), nil
}

// GenerateKey issues a new key scoped to one Api. The returned plaintext is
// the only copy that will ever exist; the database holds its hash.
func GenerateKey(db *gorm.DB, accountID, apiID uuid.UUID, name string) (string, *models.ApiKeys, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", nil, err
	}

	apiKey := models.ApiKeys{
		KeyHash:   HashKey(rawKey),
		Name:      name,
		Status:    models.Active,
		AccountID: accountID,
		ApiID:     apiID,
	}
	if err := db.Create(&apiKey).Error; err != nil {
		return "", nil, err
	}
	return rawKey, &apiKey, nil
}

func RevokeKey(db *gorm.DB, keyID uuid.UUID) error {
	result := db.Model(&models.ApiKeys{}).
		Where("id = ? AND status = ?", keyID, models.Active).
		Update("status", models.Inactive)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound("API key not found")
	}
	return nil
}

// RotateKey revokes the old key and issues its replacement in a single
// transaction: the old hash stops validating at the same instant the new one
// starts, with no window where both are dead.
func RotateKey(db *gorm.DB, keyID uuid.UUID) (string, *models.ApiKeys, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", nil, err
	}

	var newKey models.ApiKeys
	err = db.Transaction(func(tx *gorm.DB) error {
		var old models.ApiKeys
		if err := tx.Where("id = ? AND status = ?", keyID, models.Active).First(&old).Error; err != nil {
			return ErrNotFound("API key not found")
		}

		if err := tx.Model(&models.ApiKeys{}).
			Where("id = ?", old.Id).
			Update("status", models.Inactive).Error; err != nil {
			return err
		}

		newKey = models.ApiKeys{
			KeyHash:   HashKey(rawKey),
			Name:      old.Name,
			Status:    models.Active,
			ExpiresAt: old.ExpiresAt,
			AccountID: old.AccountID,
			ApiID:     old.ApiID,
		}
		return tx.Create(&newKey).Error
	})
	if err != nil {
		return "", nil, err
	}
	return rawKey, &newKey, nil
}
