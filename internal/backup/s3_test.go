package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestParseS3BucketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantBkt   string
		wantPre   string
		errSubstr string
	}{
		{name: "bucket only", raw: "s3://my-bucket", wantBkt: "my-bucket"},
		{name: "bucket with prefix", raw: "s3://my-bucket/nexum/backups/", wantBkt: "my-bucket", wantPre: "nexum/backups"},
		{name: "invalid scheme", raw: "https://my-bucket/nexum", wantErr: true, errSubstr: "s3:// scheme"},
		{name: "missing bucket", raw: "s3:///nexum", wantErr: true, errSubstr: "missing bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotBkt, gotPre, err := parseS3BucketURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Fatalf("err = %q, want substring %q", err.Error(), tt.errSubstr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseS3BucketURL error: %v", err)
			}
			if gotBkt != tt.wantBkt || gotPre != tt.wantPre {
				t.Fatalf("got (%q, %q), want (%q, %q)", gotBkt, gotPre, tt.wantBkt, tt.wantPre)
			}
		})
	}
}

type fakePutter struct {
	failures int
	calls    int
	key      string
	body     string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient")
	}
	f.key = aws.ToString(in.Key)
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestUploadFile_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	put := &fakePutter{failures: 2}
	u := newS3Uploader(put, "bkt", "nexum")
	u.backoff = time.Millisecond

	p := writeTemp(t, "nexum-archive-1.duckdb.gz", "payload")
	if err := u.UploadFile(context.Background(), p); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if put.calls != 3 {
		t.Fatalf("calls = %d, want 3", put.calls)
	}
	if put.key != "nexum/nexum-archive-1.duckdb.gz" || put.body != "payload" {
		t.Fatalf("key=%q body=%q", put.key, put.body)
	}
}

func TestUploadFile_GivesUp(t *testing.T) {
	t.Parallel()

	put := &fakePutter{failures: 10}
	u := newS3Uploader(put, "bkt", "")
	u.backoff = time.Millisecond

	err := u.UploadFile(context.Background(), writeTemp(t, "x.gz", "p"))
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("err = %v", err)
	}
	if put.calls != uploadAttempts {
		t.Fatalf("calls = %d", put.calls)
	}
}
