package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const jwtSecretKey = "jwt_secret"

// GetJWTSecret returns the API signing secret, generating and storing one on
// first use. INSERT OR IGNORE followed by a re-read keeps concurrent first
// starts from ending up with different secrets.
func GetJWTSecret(ctx context.Context, q Queryer) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	if err := setSettingIfAbsent(ctx, q, jwtSecretKey, hex.EncodeToString(buf)); err != nil {
		return "", err
	}

	return GetSetting(ctx, q, jwtSecretKey)
}

// GetSetting returns a stored setting value, or ErrNotFound.
func GetSetting(ctx context.Context, q Queryer, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("querying setting %q: %w", key, err)
	}
	return value, nil
}

func setSettingIfAbsent(ctx context.Context, q Queryer, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing setting %q: %w", key, err)
	}
	return nil
}
