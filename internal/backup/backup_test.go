package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gnetorg/gnet/internal/database"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
)

// fakeS3 records uploads in memory.
type fakeS3 struct {
	objects map[string][]byte
	putErrs int // fail this many PutObject calls before succeeding
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErrs > 0 {
		f.putErrs--
		return nil, io.ErrUnexpectedEOF
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*input.Key]
	if !ok {
		return nil, io.EOF
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func setupManager(t *testing.T, client s3Client) (*Manager, *store.BackupStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "gnet.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backups := store.NewBackupStore(db)
	m := NewManager(Config{
		Bucket:     "gnet-backups",
		Passphrase: "test-passphrase",
		DBPath:     dbPath,
	}, db, backups, slog.Default())
	m.client = client
	return m, backups
}

func TestRunNow(t *testing.T) {
	fake := newFakeS3()
	m, backups := setupManager(t, fake)

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	record, err := backups.GetByID(id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != model.BackupComplete {
		t.Errorf("status = %q, want complete", record.Status)
	}
	if record.SizeBytes == 0 {
		t.Error("expected non-zero size")
	}

	uploaded, ok := fake.objects[record.Filename]
	if !ok {
		t.Fatal("expected uploaded object")
	}

	// Uploaded bytes must decrypt back to a SQLite database.
	plaintext, err := Decrypt(uploaded, "test-passphrase")
	if err != nil {
		t.Fatalf("decrypt upload: %v", err)
	}
	if !bytes.HasPrefix(plaintext, []byte("SQLite format 3")) {
		t.Error("decrypted upload is not a SQLite database")
	}
}

func TestRunNowRetriesTransientUploadFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErrs = 2
	m, backups := setupManager(t, fake)

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup with transient failures: %v", err)
	}
	record, _ := backups.GetByID(id)
	if record.Status != model.BackupComplete {
		t.Errorf("status = %q, want complete", record.Status)
	}
}

func TestRunNowUnconfigured(t *testing.T) {
	m, _ := setupManager(t, newFakeS3())
	m.cfg.Passphrase = ""

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("expected error without passphrase")
	}
}

func TestFetchRoundTrip(t *testing.T) {
	fake := newFakeS3()
	m, _ := setupManager(t, fake)

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	data, err := m.Fetch(context.Background(), id)
	if err != nil {
		t.Fatalf("fetch backup: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("SQLite format 3")) {
		t.Error("fetched backup is not a SQLite database")
	}
}

func TestFetchUnknownID(t *testing.T) {
	m, _ := setupManager(t, newFakeS3())
	if _, err := m.Fetch(context.Background(), 999); err == nil {
		t.Error("expected error for unknown backup id")
	}
}
