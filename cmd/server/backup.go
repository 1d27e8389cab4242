package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/di"
)

var rotateFlag bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload a snapshot of the sqlite store to S3 and exit",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&rotateFlag, "rotate", false, "Delete archives older than BACKUP_RETENTION_DAYS after uploading")
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
	defer cancel()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer func() {
		if err := container.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	if container.BackupService == nil {
		return errors.New("backups need STORE_BACKEND=sqlite and BACKUP_S3_BUCKET")
	}

	key, err := container.BackupService.CreateAndUploadBackup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)

	if rotateFlag {
		deleted, err := container.BackupService.RotateOldBackups(ctx, cfg.Backup.RetentionDays)
		if err != nil {
			return fmt.Errorf("rotation failed: %w", err)
		}
		log.Info().Int("deleted", deleted).Msg("Old backups rotated")
	}

	return nil
}
