package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const pdfContentType = "application/pdf"

// Uploader writes and reads invoice documents in a Cloud Storage bucket.
type Uploader struct {
	client *gcs.Client
	bucket string
}

// NewUploader constructs an Uploader bound to the invoices bucket.
func NewUploader(client *gcs.Client, bucket string) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// UploadInvoice stores the rendered PDF under the canonical invoice path and
// returns the object key.
func (u *Uploader) UploadInvoice(ctx context.Context, orderID string, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", errors.New("storage: invoice payload is empty")
	}
	object, err := InvoiceObjectPath(orderID)
	if err != nil {
		return "", err
	}

	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = pdfContentType
	if _, err := writer.Write(pdf); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage: write invoice %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage: flush invoice %s: %w", object, err)
	}
	return object, nil
}

// ReadInvoice fetches a previously stored invoice PDF.
func (u *Uploader) ReadInvoice(ctx context.Context, orderID string) ([]byte, error) {
	object, err := InvoiceObjectPath(orderID)
	if err != nil {
		return nil, err
	}

	reader, err := u.client.Bucket(u.bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("storage: invoice %s not found: %w", object, err)
		}
		return nil, fmt.Errorf("storage: open invoice %s: %w", object, err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("storage: read invoice %s: %w", object, err)
	}
	return payload, nil
}
