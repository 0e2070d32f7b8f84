package s3

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Presigning is computed locally so this does not need AWS access
func TestS3_SignedURL(t *testing.T) {
	ctx := context.Background()

	repo, err := NewS3Session(ctx, "AKIDEXAMPLE", "secret", "us-east-1", "listings-snapshots")
	require.NoError(t, err)
	assert.Equal(t, "listings-snapshots", repo.Bucket())

	signed, err := repo.GetSignedUrl(ctx, repo.Bucket(), "snapshots/2019-04-02/types.png")
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Contains(t, parsed.Host+parsed.Path, "listings-snapshots")
	assert.Contains(t, parsed.Path, "snapshots/2019-04-02/types.png")
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "600", parsed.Query().Get("X-Amz-Expires"))
}
