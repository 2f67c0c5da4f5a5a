package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Prefix:          "config/",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, "config/node.yml", backend.key("node.yml"))
		assert.Equal(t, "closed", backend.BreakerState())
	})
}

func TestS3Backend_BreakerOpensOnFailures(t *testing.T) {
	backend, err := New(Config{
		Bucket:             "test-bucket",
		AccessKeyID:        "test-key",
		SecretAccessKey:    "test-secret",
		BreakerMinRequests: 2,
		BreakerFailRatio:   0.5,
		BreakerTimeout:     time.Minute,
	})
	require.NoError(t, err)

	failing := func() (interface{}, error) { return nil, io.ErrUnexpectedEOF }
	for i := 0; i < 2; i++ {
		_, err := backend.execute(failing)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	}

	_, err = backend.execute(func() (interface{}, error) { return nil, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 backend unavailable")
	assert.Equal(t, "open", backend.BreakerState())
}

func TestS3Backend_NotFoundDoesNotTrip(t *testing.T) {
	backend, err := New(Config{
		Bucket:             "test-bucket",
		AccessKeyID:        "test-key",
		SecretAccessKey:    "test-secret",
		BreakerMinRequests: 1,
		BreakerFailRatio:   0.1,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := backend.execute(func() (interface{}, error) { return nil, simpleentity.ErrObjectNotFound })
		assert.ErrorIs(t, err, simpleentity.ErrObjectNotFound)
	}
	assert.Equal(t, "closed", backend.BreakerState())
}

// TestS3Backend_MinIO runs against a live S3-compatible endpoint when
// S3_TEST_ENDPOINT is set, e.g. a local MinIO.
func TestS3Backend_MinIO(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT not set")
	}

	backend, err := New(Config{
		Bucket:                 "simple-entity-test",
		Endpoint:               endpoint,
		AccessKeyID:            os.Getenv("S3_TEST_ACCESS_KEY"),
		SecretAccessKey:        os.Getenv("S3_TEST_SECRET_KEY"),
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := "test/" + uuid.NewString() + ".yml"

	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader([]byte("status: true\n")), simpleentity.UploadParams{
		ObjectKey: key,
		MimeType:  "application/yaml",
	}))

	reader, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, "status: true\n", string(data))

	require.NoError(t, backend.Delete(ctx, key))
	assert.ErrorIs(t, backend.Delete(ctx, key), simpleentity.ErrObjectNotFound)

	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, simpleentity.ErrObjectNotFound)
}
