package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func newTestArchive(p *fakePutter) *ImageArchive {
	return &ImageArchive{
		client:         p,
		bucket:         "kgcurate",
		publicEndpoint: "https://cdn.example.org/s3",
		now:            func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestPutImage(t *testing.T) {
	p := &fakePutter{}
	a := newTestArchive(p)

	key, err := a.PutImage(context.Background(), "trap-photo.PNG", "", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^images/2025-06-01/[A-Za-z0-9_-]{21}\.png$`).MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}
	if aws.ToString(p.input.Bucket) != "kgcurate" || aws.ToString(p.input.Key) != key {
		t.Fatalf("unexpected put input %+v", p.input)
	}
	if aws.ToString(p.input.ContentType) != "image/png" {
		t.Fatalf("expected image/png, got %q", aws.ToString(p.input.ContentType))
	}
	if string(p.body) != "png-bytes" {
		t.Fatalf("unexpected body %q", p.body)
	}

	if got := a.PublicURL(key); got != "https://cdn.example.org/s3/kgcurate/"+key {
		t.Fatalf("unexpected public url %q", got)
	}
}

func TestPutImage_Error(t *testing.T) {
	a := newTestArchive(&fakePutter{err: errors.New("denied")})
	if _, err := a.PutImage(context.Background(), "x.jpg", "image/jpeg", []byte{1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewImageArchive_NilClient(t *testing.T) {
	if NewImageArchive(nil) != nil {
		t.Fatal("expected nil archive")
	}
}
