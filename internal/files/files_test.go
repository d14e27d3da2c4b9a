package files_test

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
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/files"
	"github.com/goliatone/go-press/pkg/interfaces"
)

var fixedID = uuid.MustParse("0d9f1c1e-5b4a-4c59-8c87-3e7d1f0a9b21")

func fixedOptions() []files.Option {
	return []files.Option{
		files.WithClock(func() time.Time { return time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC) }),
		files.WithIDGenerator(func() uuid.UUID { return fixedID }),
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"cover.JPG":         ".jpg",
		"track.mp3":         ".mp3",
		"archive.tar.gz":    ".gz",
		"noext":             "",
		"weird.ph p":        "",
		"long.abcdefghijkl": "",
		".":                 "",
	}
	for name, want := range cases {
		if got := files.Extension(name); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestMemoryStoragePut(t *testing.T) {
	store := files.NewMemoryStorage("https://cdn.example.com/media/", fixedOptions()...)

	ref, err := store.Put(context.Background(), interfaces.FileUpload{
		Name:        "Cover.PNG",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
		Prefix:      "Covers",
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	wantKey := "covers/2024/07/" + fixedID.String() + ".png"
	if ref.Key != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, ref.Key)
	}
	if ref.URL != "https://cdn.example.com/media/"+wantKey {
		t.Fatalf("unexpected url %q", ref.URL)
	}
	if ref.Size != int64(len("png-bytes")) {
		t.Fatalf("unexpected size %d", ref.Size)
	}

	reader, contentType, err := store.Open(ref.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(reader)
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected stored object %q %q", data, contentType)
	}

	if err := store.Delete(context.Background(), ref.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(context.Background(), ref.Key); !errors.Is(err, files.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrefixIsSanitized(t *testing.T) {
	store := files.NewMemoryStorage("", fixedOptions()...)

	ref, err := store.Put(context.Background(), interfaces.FileUpload{Name: "a.mp3", Body: strings.NewReader("x"), Prefix: "../../etc"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(ref.Key, "etc/2024/07/") {
		t.Fatalf("expected sanitized prefix, got %q", ref.Key)
	}

	ref, err = store.Put(context.Background(), interfaces.FileUpload{Name: "a.mp3", Body: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(ref.Key, files.DefaultPrefix+"/") || ref.URL != "/uploads/"+ref.Key {
		t.Fatalf("expected default prefix, got %q %q", ref.Key, ref.URL)
	}
}

func TestLocalStorageWritesBelowDir(t *testing.T) {
	dir := t.TempDir()
	store, err := files.NewLocalStorage(dir, "/uploads", fixedOptions()...)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	ref, err := store.Put(context.Background(), interfaces.FileUpload{Name: "song.mp3", Body: strings.NewReader("audio"), Prefix: "tracks"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ref.Key)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "audio" || ref.Size != 5 {
		t.Fatalf("unexpected stored data %q (%d)", data, ref.Size)
	}
	if ref.URL != "/uploads/"+ref.Key {
		t.Fatalf("unexpected url %q", ref.URL)
	}

	if err := store.Delete(context.Background(), "../outside"); !errors.Is(err, files.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := store.Delete(context.Background(), ref.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(context.Background(), ref.Key); !errors.Is(err, files.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutRequiresBody(t *testing.T) {
	store := files.NewMemoryStorage("")
	if _, err := store.Put(context.Background(), interfaces.FileUpload{Name: "x"}); !errors.Is(err, files.ErrBodyRequired) {
		t.Fatalf("expected ErrBodyRequired, got %v", err)
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(data))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoragePut(t *testing.T) {
	client := &fakeS3{}
	store, err := files.NewS3Storage(client, files.S3Config{
		Bucket:   "press",
		Endpoint: "http://localhost:9000",
	}, fixedOptions()...)
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}

	ref, err := store.Put(context.Background(), interfaces.FileUpload{
		Name:        "clip.mp4",
		ContentType: "video/mp4",
		Body:        io.MultiReader(strings.NewReader("vid"), strings.NewReader("eo")),
		Prefix:      "media",
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(client.puts) != 1 {
		t.Fatalf("expected one upload, got %d", len(client.puts))
	}
	in := client.puts[0]
	if aws.ToString(in.Bucket) != "press" || aws.ToString(in.Key) != ref.Key {
		t.Fatalf("unexpected put input %+v", in)
	}
	if aws.ToInt64(in.ContentLength) != 5 || aws.ToString(in.ContentType) != "video/mp4" || client.bodies[0] != "video" {
		t.Fatalf("unexpected body metadata %d %q %q", aws.ToInt64(in.ContentLength), aws.ToString(in.ContentType), client.bodies[0])
	}
	if ref.URL != "http://localhost:9000/press/"+ref.Key {
		t.Fatalf("unexpected url %q", ref.URL)
	}

	if err := store.Delete(context.Background(), ref.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(client.deletes) != 1 || client.deletes[0] != ref.Key {
		t.Fatalf("unexpected deletes %v", client.deletes)
	}
}

func TestS3StorageRequiresBucket(t *testing.T) {
	if _, err := files.NewS3Storage(&fakeS3{}, files.S3Config{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

func TestS3StoragePutFailure(t *testing.T) {
	client := &fakeS3{err: errors.New("boom")}
	store, _ := files.NewS3Storage(client, files.S3Config{Bucket: "b", Region: "eu-west-1"})

	if _, err := store.Put(context.Background(), interfaces.FileUpload{Name: "a", Body: strings.NewReader("x")}); err == nil {
		t.Fatalf("expected put error")
	}
	if got := store.URL("k"); got != "https://b.s3.eu-west-1.amazonaws.com/k" {
		t.Fatalf("unexpected default url %q", got)
	}
}
