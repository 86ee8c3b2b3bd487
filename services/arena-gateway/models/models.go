package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Authorization records every signed grant the gateway hands out. The row is
// written before the signature leaves the process so operators can audit which
// caller requested which on-chain effect.
type Authorization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Caller    string    `gorm:"index"`
	Kind      string    `gorm:"index"`
	Account   string    `gorm:"index"`
	Nonce     uint64
	Digest    string `gorm:"uniqueIndex"`
	Signature string
	Deadline  int64
	CreatedAt time.Time
}

// AutoMigrate ensures the gateway schema exists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Authorization{})
}
