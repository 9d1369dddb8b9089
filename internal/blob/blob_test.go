package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/xelth-com/protocolos/internal/config"
)

func TestCleanKey(t *testing.T) {
	good := map[string]string{
		"p1/nota_1.jpg":  "p1/nota_1.jpg",
		"/p1/nota_1.jpg": "p1/nota_1.jpg",
	}
	for in, want := range good {
		if got, err := CleanKey(in); err != nil || got != want {
			t.Errorf("CleanKey(%q) = %q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "../etc/passwd", "p1/../../x", "p1//x", `p1\x`, "."} {
		if _, err := CleanKey(bad); err == nil {
			t.Errorf("CleanKey(%q) should fail", bad)
		}
	}
}

func TestDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(t.TempDir(), "http://localhost:3001/api/photos/")
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Upload(ctx, "p1/avaria_42.png", []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	url, _ := d.PublicURL(ctx, "p1/avaria_42.png")
	if url != "http://localhost:3001/api/photos/p1/avaria_42.png" {
		t.Errorf("PublicURL = %q", url)
	}

	rc, contentType, err := d.Open(ctx, "p1/avaria_42.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Errorf("got %q (%s)", data, contentType)
	}

	if _, _, err := d.Open(ctx, "p1/missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object: %v", err)
	}
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: aws.String(f.types[aws.ToString(in.Key)]),
	}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	s := newS3Store(fake, config.StorageConfig{Bucket: "fotos", Region: "sa-east-1"})

	if err := s.Upload(ctx, "p1/nota_1.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := string(fake.objects["p1/nota_1.jpg"]); got != "jpeg" {
		t.Errorf("stored %q", got)
	}
	url, _ := s.PublicURL(ctx, "p1/nota_1.jpg")
	if url != "https://fotos.s3.sa-east-1.amazonaws.com/p1/nota_1.jpg" {
		t.Errorf("PublicURL = %q", url)
	}

	rc, contentType, err := s.Open(ctx, "p1/nota_1.jpg")
	if err != nil || contentType != "image/jpeg" {
		t.Fatalf("Open: %v %q", err, contentType)
	}
	rc.Close()

	if _, _, err := s.Open(ctx, "p1/none.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key: %v", err)
	}
}

func TestS3PublicURLWithEndpoint(t *testing.T) {
	s := newS3Store(&fakeS3{}, config.StorageConfig{Bucket: "fotos", Endpoint: "http://localstack:4566/"})
	url, _ := s.PublicURL(context.Background(), "p1/nota 1.jpg")
	if url != "http://localstack:4566/fotos/p1/nota%201.jpg" {
		t.Errorf("PublicURL = %q", url)
	}
}
