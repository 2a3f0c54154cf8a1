//go:build integration

package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/fixwise/fixwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_ReportRoundTrip(t *testing.T) {
	ctx := context.Background()

	s3Container := testutil.NewRustFSContainer(ctx, t)
	defer s3Container.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        s3Container.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "fixwise-reports",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	require.NoError(t, client.EnsureBucket(ctx))
	// idempotent
	require.NoError(t, client.EnsureBucket(ctx))

	report := map[string]interface{}{
		"generated_at": "2026-02-10T09:30:00Z",
		"statistics":   map[string]int{"total_entries": 3},
	}
	payload, err := json.Marshal(report)
	require.NoError(t, err)

	key := "reports/feedback_report_20260210_093000.json"
	require.NoError(t, client.PutObject(ctx, key, "application/json", payload))

	url, err := client.GenerateDownloadURL(ctx, key)
	require.NoError(t, err)
	require.NotEmpty(t, url)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(body))
}
