// Package backup uploads encrypted snapshots of the SQLite database to
// S3-compatible storage on a nightly schedule.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/gnetorg/gnet/internal/store"
)

// backupHourUTC is when the nightly snapshot runs.
const backupHourUTC = 3

// s3Client is the subset of the S3 API the manager needs, an interface for
// testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Passphrase string
	DBPath     string
}

// Manager runs scheduled and on-demand encrypted backups.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	lastRun time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		db:      db,
		backups: backups,
		logger:  logger.With("component", "backup"),
	}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager has working storage configuration.
func (m *Manager) Enabled() bool {
	return m.client != nil && m.cfg.Passphrase != ""
}

// Start begins the nightly backup loop.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		return
	}
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := time.Now().UTC()
	if now.Hour() != backupHourUTC {
		return
	}
	m.mu.Lock()
	ranToday := m.lastRun.Year() == now.Year() && m.lastRun.YearDay() == now.YearDay()
	if !ranToday {
		m.lastRun = now
	}
	m.mu.Unlock()
	if ranToday {
		return
	}

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
}

// RunNow snapshots the database, encrypts it, and uploads it. It returns the
// backup record id.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	if !m.Enabled() {
		return 0, fmt.Errorf("backup not configured")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("gnet-%s.db.enc", timestamp)

	record, err := m.backups.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	// Checkpoint WAL so the main database file is a complete snapshot.
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		m.backups.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("wal checkpoint: %w", err)
	}

	plaintext, err := os.ReadFile(m.cfg.DBPath)
	if err != nil {
		m.backups.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("read database: %w", err)
	}

	encrypted, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		m.backups.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	if err := m.upload(ctx, filename, encrypted); err != nil {
		m.backups.MarkFailed(record.ID, err.Error())
		return 0, err
	}

	location := fmt.Sprintf("s3://%s/%s", m.cfg.Bucket, filename)
	if err := m.backups.MarkComplete(record.ID, int64(len(encrypted)), location); err != nil {
		return 0, fmt.Errorf("mark complete: %w", err)
	}
	m.logger.Info("backup uploaded", "filename", filename, "bytes", len(encrypted))
	return record.ID, nil
}

// upload puts the object with exponential backoff; transient S3 failures are
// retried a few times before the backup is marked failed.
func (m *Manager) upload(ctx context.Context, key string, data []byte) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(m.cfg.Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("upload to s3: %w", err))
		}
		return nil
	})
}

// Fetch downloads and decrypts a stored backup, returning the raw SQLite
// database bytes. Restoring is a manual operation: an operator downloads the
// snapshot and swaps the database file while the service is stopped.
func (m *Manager) Fetch(ctx context.Context, backupID int64) ([]byte, error) {
	if m.client == nil {
		return nil, fmt.Errorf("backup not configured")
	}

	record, err := m.backups.GetByID(backupID)
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("backup not found")
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(record.Filename),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	encrypted, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read downloaded object: %w", err)
	}
	return Decrypt(encrypted, m.cfg.Passphrase)
}
