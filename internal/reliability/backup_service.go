// Package reliability snapshots the sqlite store and ships the snapshots to S3.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/version"
)

const (
	archivePrefix  = "papertrader-backup-"
	archiveSuffix  = ".tar.gz"
	archiveLayout  = "2006-01-02-150405"
	metadataFile   = "backup-metadata.json"
	snapshotFile   = "papertrader.db"
	metadataFormat = "1.0.0"

	// Rotation never goes below this many archives, whatever their age
	minBackupsToKeep = 3
)

// Snapshotter writes a consistent copy of a database to a new file
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
	Name() string
}

// Uploader is the part of manager.Uploader used for archives
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ObjectStore is the part of the S3 API used for listing and rotation
type ObjectStore interface {
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// EventEmitter publishes domain events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// BackupMetadata is stored next to the snapshot inside every archive
type BackupMetadata struct {
	Timestamp  time.Time          `json:"timestamp"`
	Format     string             `json:"format"`
	AppVersion string             `json:"app_version"`
	Databases  []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one snapshot in an archive
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes an archive stored in the bucket
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the store, packs the snapshot and uploads it
type BackupService struct {
	snapshotter Snapshotter
	uploader    Uploader
	objects     ObjectStore
	bucket      string
	prefix      string
	stagingDir  string
	events      EventEmitter
	now         func() time.Time
	log         zerolog.Logger
}

// NewBackupService creates a backup service. objects and emitter may be nil;
// listing and rotation then fail and no event is emitted.
func NewBackupService(
	snapshotter Snapshotter,
	uploader Uploader,
	objects ObjectStore,
	bucket, prefix, stagingDir string,
	emitter EventEmitter,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		snapshotter: snapshotter,
		uploader:    uploader,
		objects:     objects,
		bucket:      bucket,
		prefix:      prefix,
		stagingDir:  stagingDir,
		events:      emitter,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("service", "s3_backup").Logger(),
	}
}

// NewBackupServiceFromConfig builds the S3 client and uploader from an AWS config.
// A custom endpoint (localstack, minio) switches to path-style addressing.
func NewBackupServiceFromConfig(
	cfg aws.Config,
	snapshotter Snapshotter,
	bucket, prefix, stagingDir string,
	emitter EventEmitter,
	log zerolog.Logger,
) *BackupService {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
	return NewBackupService(snapshotter, manager.NewUploader(client), client, bucket, prefix, stagingDir, emitter, log)
}

// CreateAndUploadBackup snapshots the database into a tar.gz archive and uploads it.
// It returns the object key.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	s.log.Info().Str("bucket", s.bucket).Msg("Starting S3 backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.stagingDir, "backup-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	now := s.now()
	dbPath := filepath.Join(stagingDir, snapshotFile)

	if err := s.snapshotter.Snapshot(ctx, dbPath); err != nil {
		return "", fmt.Errorf("failed to snapshot %s: %w", s.snapshotter.Name(), err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat snapshot: %w", err)
	}

	checksum, err := calculateChecksum(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp:  now,
		Format:     metadataFormat,
		AppVersion: version.Version,
		Databases: []DatabaseMetadata{{
			Name:      s.snapshotter.Name(),
			Filename:  snapshotFile,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		}},
	}

	if err := writeMetadata(filepath.Join(stagingDir, metadataFile), metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := archivePrefix + now.Format(archiveLayout) + archiveSuffix
	archivePath := filepath.Join(stagingDir, archiveName)

	if err := createArchive(archivePath, stagingDir, []string{snapshotFile, metadataFile}); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	key := s.prefix + archiveName
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        archiveFile,
		ContentType: aws.String("application/gzip"),
		Metadata:    map[string]string{"checksum": checksum, "app-version": version.Version},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("S3 backup completed successfully")

	if s.events != nil {
		s.events.EmitTyped("reliability", &events.BackupCompletedData{
			Bucket:    s.bucket,
			Key:       key,
			SizeBytes: archiveInfo.Size(),
		})
	}

	return key, nil
}

// ListBackups lists the archives under the prefix, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("backup listing is not configured")
	}

	paginator := s3.NewListObjectsV2Paginator(s.objects, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + archivePrefix),
	})

	now := s.now()
	var backups []BackupInfo

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3 backups: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}

			// papertrader/papertrader-backup-2026-01-08-143022.tar.gz
			name := strings.TrimPrefix(*obj.Key, s.prefix)
			if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
				continue
			}

			stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
			timestamp, err := time.Parse(archiveLayout, stamp)
			if err != nil {
				s.log.Warn().Str("key", *obj.Key).Msg("Failed to parse timestamp from key")
				continue
			}

			backups = append(backups, BackupInfo{
				Key:       *obj.Key,
				Timestamp: timestamp,
				SizeBytes: aws.ToInt64(obj.Size),
				AgeHours:  int64(now.Sub(timestamp).Hours()),
			})
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes archives older than retentionDays, keeping at least
// minBackupsToKeep. A retention of 0 keeps everything. It returns the number deleted.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	if len(backups) <= minBackupsToKeep {
		s.log.Debug().Int("count", len(backups)).Msg("Too few backups to rotate")
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0

	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}

		_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(backup.Key),
		})
		if err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}

		s.log.Info().
			Str("key", backup.Key).
			Time("timestamp", backup.Timestamp).
			Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("S3 backup rotation completed")

	return deleted, nil
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive packs the named files of sourceDir into a tar.gz at archivePath
func createArchive(archivePath, sourceDir string, names []string) (err error) {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := archiveFile.Close(); err == nil {
			err = cerr
		}
	}()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, name := range names {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
