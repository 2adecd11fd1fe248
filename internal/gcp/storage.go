package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ObjectWriter opens a writer for an object. *storage.ObjectHandle's
// NewWriter is adapted to it by BucketWriter.
type ObjectWriter func(ctx context.Context, objectName string, ifNotExists bool) io.WriteCloser

// BucketWriter adapts a bucket handle to ObjectWriter.
func BucketWriter(bucket *storage.BucketHandle) ObjectWriter {
	return func(ctx context.Context, objectName string, ifNotExists bool) io.WriteCloser {
		obj := bucket.Object(objectName)
		if ifNotExists {
			obj = obj.If(storage.Conditions{DoesNotExist: true})
		}
		return obj.NewWriter(ctx)
	}
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not an error.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	return SaveAtomically(ctx, BucketWriter(bucket), objectName, content)
}

// SaveAtomically is SaveToGCSAtomically over any ObjectWriter.
func SaveAtomically(ctx context.Context, open ObjectWriter, objectName, content string) error {
	writer := open(ctx, objectName, true)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Skipping write, object already exists.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object.", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	// The precondition is usually only checked when the upload is finalized.
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Skipping write, object already exists.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer.", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// DownloadObject streams gs://bucket/object into destPath.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	return copyToFile(gcsReader, destPath)
}

func copyToFile(r io.Reader, destPath string) error {
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	if _, err := io.Copy(localFile, r); err != nil {
		localFile.Close()
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return localFile.Close()
}

// RetryPolicy controls UploadWithRetry.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy retries four times starting at one second.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 4, InitialBackoff: time.Second, AttemptTimeout: 50 * time.Second}

// UploadWithRetry copies the local file to an object, retrying with
// exponential backoff. Existing objects are overwritten.
func UploadWithRetry(ctx context.Context, open ObjectWriter, localPath, destObject string, policy RetryPolicy) error {
	backoff := policy.InitialBackoff
	var lastErr error

	for i := 0; i < policy.MaxRetries; i++ {
		err := func() error {
			localFileReader, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer localFileReader.Close()

			writeCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
			defer cancel()

			gcsWriter := open(writeCtx, destObject, false)
			if _, err := io.Copy(gcsWriter, localFileReader); err != nil {
				_ = gcsWriter.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := gcsWriter.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", policy.MaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}
