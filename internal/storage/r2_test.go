package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func testBucket(client s3API) *Bucket {
	return &Bucket{
		client: client,
		http:   &http.Client{Timeout: 10 * time.Second},
		name:   "aristobites",
		public: "https://cdn.aristobites.com",
		log:    zap.NewNop(),
	}
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	b := testBucket(fake)

	url, err := b.Upload(context.Background(), "audio/abc.mp3", strings.NewReader("mp3-bytes"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.aristobites.com/audio/abc.mp3", url)

	require.NotNil(t, fake.input)
	assert.Equal(t, "aristobites", *fake.input.Bucket)
	assert.Equal(t, "audio/abc.mp3", *fake.input.Key)
	assert.Equal(t, "audio/mpeg", *fake.input.ContentType)
	assert.Equal(t, []byte("mp3-bytes"), fake.body)
}

func TestUploadError(t *testing.T) {
	fake := &fakeS3{err: fmt.Errorf("access denied")}
	b := testBucket(fake)

	_, err := b.Upload(context.Background(), "audio/abc.mp3", strings.NewReader("x"), "audio/mpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload audio/abc.mp3")
	assert.Contains(t, err.Error(), "access denied")
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0o644))

	fake := &fakeS3{}
	b := testBucket(fake)

	url, err := b.UploadFile(context.Background(), "videos/final.mp4", path, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.aristobites.com/videos/final.mp4", url)
	assert.Equal(t, []byte("video-bytes"), fake.body)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clip-bytes"))
	}))
	defer srv.Close()

	b := testBucket(&fakeS3{})
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	require.NoError(t, b.Download(context.Background(), srv.URL+"/clip.mp4", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("clip-bytes"), data)
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such object", http.StatusNotFound)
	}))
	defer srv.Close()

	b := testBucket(&fakeS3{})
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	err := b.Download(context.Background(), srv.URL+"/missing.mp4", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
