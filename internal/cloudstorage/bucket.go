// Package cloudstorage implements the storage collaborator on Google Cloud Storage:
// publishing generated artifacts and mirroring reference voices to local disk.
package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	publicURLBase   = "https://storage.googleapis.com"
	filePermissions = 0o600
)

// Bucket is a handle on one GCS bucket. Uploads land under uploadPrefix and are made public.
type Bucket struct {
	client       *storage.Client
	name         string
	uploadPrefix string
}

// NewBucket authenticates with the service account file at credentialPath.
func NewBucket(ctx context.Context, credentialPath, name, uploadPrefix string) (*Bucket, error) {
	return NewBucketWithOptions(ctx, name, uploadPrefix,
		option.WithCredentialsFile(credentialPath),
		option.WithScopes(storage.ScopeFullControl),
	)
}

// NewBucketWithOptions builds a bucket from explicit client options, such as a custom endpoint.
func NewBucketWithOptions(
	ctx context.Context,
	name, uploadPrefix string,
	opts ...option.ClientOption,
) (*Bucket, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Bucket{client: client, name: name, uploadPrefix: uploadPrefix}, nil
}

// Close releases the underlying client.
func (b *Bucket) Close() error {
	err := b.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close storage client: %w", err)
	}

	return nil
}

// Upload copies localPath to <uploadPrefix>/<basename>, grants public read access and
// returns the public URL.
func (b *Bucket) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	objectName := ObjectName(b.uploadPrefix, filepath.Base(localPath))
	object := b.client.Bucket(b.name).Object(objectName)

	writer := object.NewWriter(ctx)

	_, copyErr := io.Copy(writer, file)
	closeErr := writer.Close()

	if copyErr != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, copyErr)
	}

	if closeErr != nil {
		return "", fmt.Errorf("failed to finalize upload of %s: %w", objectName, closeErr)
	}

	aclErr := object.ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
	if aclErr != nil {
		return "", fmt.Errorf("failed to make %s public: %w", objectName, aclErr)
	}

	return PublicURL(b.name, objectName), nil
}

// List returns the object names under prefix. With a delimiter, synthetic directory
// prefixes are omitted.
func (b *Bucket) List(ctx context.Context, prefix, delimiter string) ([]string, error) {
	objects := b.client.Bucket(b.name).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: delimiter})

	var names []string

	for {
		attrs, err := objects.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", b.name, prefix, err)
		}

		if attrs.Name == "" {
			continue
		}

		names = append(names, attrs.Name)
	}

	return names, nil
}

// Download writes object name to localPath through a temporary file in the same directory.
func (b *Bucket) Download(ctx context.Context, name, localPath string) error {
	reader, err := b.client.Bucket(b.name).Object(name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to open gs://%s/%s: %w", b.name, name, err)
	}
	defer reader.Close()

	return writeAtomically(localPath, reader)
}

// ObjectName joins prefix and filename with a single slash.
func ObjectName(prefix, filename string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return filename
	}

	return prefix + "/" + filename
}

// PublicURL is the anonymous HTTPS URL of a public object.
func PublicURL(bucket, objectName string) string {
	return publicURLBase + "/" + bucket + "/" + (&url.URL{Path: objectName}).EscapedPath()
}

func writeAtomically(localPath string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+path.Base(localPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", localPath, err)
	}

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()

	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", localPath, errors.Join(copyErr, closeErr))
	}

	chmodErr := os.Chmod(tmp.Name(), filePermissions)
	if chmodErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to set permissions on %s: %w", localPath, chmodErr)
	}

	renameErr := os.Rename(tmp.Name(), localPath)
	if renameErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to move %s into place: %w", localPath, renameErr)
	}

	return nil
}
