package objectstore

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/oksasatya/go-user-management/pkg/helpers"
)

// ImportArchiver keeps a copy of every bulk import upload in a GCS bucket.
type ImportArchiver struct {
	GCS    *storage.Client
	Bucket string
	Prefix string
	Now    func() time.Time
}

func NewImportArchiver(gcs *storage.Client, bucket string) *ImportArchiver {
	return &ImportArchiver{GCS: gcs, Bucket: bucket, Prefix: "imports", Now: time.Now}
}

// ObjectPath returns <prefix>/<yyyy>/<mm>/<dd>/<uuid>-<base name>.
func (a *ImportArchiver) ObjectPath(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.json"
	}
	day := a.Now().UTC().Format("2006/01/02")
	return path.Join(a.Prefix, day, uuid.NewString()+"-"+name)
}

// Archive uploads r and returns the object URL.
func (a *ImportArchiver) Archive(ctx context.Context, filename string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, a.GCS, a.Bucket, a.ObjectPath(filename), "application/json", r)
}
