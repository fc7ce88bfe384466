// Package storage holds the object stores that keep journal photos.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhotoStore uploads, removes and resolves photos by storage path.
type PhotoStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// PhotoKey builds a storage path scoped by user and entry. The original
// extension is kept so browsers pick the right viewer.
func PhotoKey(userID, entryID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > 8 {
		ext = ""
	}
	d := time.Now().UTC()
	return fmt.Sprintf("users/%s/%d/%02d/%s/%s%s", userID, d.Year(), d.Month(), entryID, uuid.NewString(), ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
