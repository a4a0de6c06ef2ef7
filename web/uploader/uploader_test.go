package uploader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUploader(t *testing.T, h http.HandlerFunc) (Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(srv.URL),
		Region:           aws.String("eu-central-1"),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials("id", "secret", ""),
		MaxRetries:       aws.Int(0),
	})
	require.NoError(t, err)
	return New(s3manager.NewUploader(sess), "zee-crown"), srv
}

func TestUpload(t *testing.T) {
	var (
		gotMethod, gotPath, gotType, gotACL string
		gotBody                             []byte
	)
	svc, srv := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotACL = r.Header.Get("X-Amz-Acl")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	})

	location, err := svc.Upload(context.Background(), "banners/1_summer.webp", bytes.NewReader([]byte("RIFF....WEBP")), "image/webp")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/zee-crown/banners/1_summer.webp", gotPath)
	assert.Equal(t, "image/webp", gotType)
	assert.Equal(t, "public-read", gotACL)
	assert.Equal(t, []byte("RIFF....WEBP"), gotBody)
	assert.Equal(t, srv.URL+"/zee-crown/banners/1_summer.webp", location)
}

func TestUploadError(t *testing.T) {
	svc, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
	})

	_, err := svc.Upload(context.Background(), "banners/1_summer.webp", bytes.NewReader([]byte("x")), "image/webp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banners/1_summer.webp")
}

func TestDelete(t *testing.T) {
	type tc struct {
		name        string
		status      int
		expectedErr bool
	}

	tcs := []tc{
		{name: "deleted", status: http.StatusNoContent},
		{name: "denied", status: http.StatusForbidden, expectedErr: true},
	}

	getTest := func(tc tc) func(t *testing.T) {
		return func(t *testing.T) {
			var gotMethod, gotPath string
			svc, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
				w.WriteHeader(tc.status)
				if tc.status >= http.StatusBadRequest {
					io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
				}
			})

			err := svc.Delete(context.Background(), "product_images/1_ring.webp")
			assert.Equal(t, http.MethodDelete, gotMethod)
			assert.Equal(t, "/zee-crown/product_images/1_ring.webp", gotPath)
			if tc.expectedErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "product_images/1_ring.webp")
				return
			}
			require.NoError(t, err)
		}
	}

	for _, tc := range tcs {
		t.Run(tc.name, getTest(tc))
	}
}
