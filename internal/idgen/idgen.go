// Package idgen generates short, URL-safe IDs for backups and published
// lifecycle events, backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ID prefixes by kind.
const (
	BackupPrefix = "bk-"
	EventPrefix  = "ev-"
)

// Alphabet is the character set of the random part.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters after the prefix.
const Length = 12

// Backup returns a new backup snapshot ID.
func Backup() (string, error) {
	return WithPrefix(BackupPrefix)
}

// Event returns a new event envelope ID.
func Event() (string, error) {
	return WithPrefix(EventPrefix)
}

// WithPrefix returns prefix followed by Length random characters.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
