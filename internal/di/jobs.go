package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/reliability"
	"github.com/aristath/papertrader/internal/scheduler"
)

// Job schedules
const (
	checkCoreDatabasesSchedule  = "@hourly"
	checkWALCheckpointsSchedule = "@every 15m"
	dailyMaintenanceSchedule    = "0 2 * * *"
)

// RegisterJobs creates the scheduler and registers the maintenance and backup
// jobs. The sqlite jobs are only registered for the sqlite backend.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	container.Scheduler = sched
	instances := &JobInstances{}

	if container.DB != nil {
		instances.CheckCoreDatabases = scheduler.NewCheckCoreDatabasesJob(container.DB, log)
		instances.CheckWALCheckpoints = scheduler.NewCheckWALCheckpointsJob(container.DB, log)
		instances.DailyMaintenance = reliability.NewDailyMaintenanceJob(container.DB, cfg.DataDir, log)

		for _, entry := range []struct {
			schedule string
			job      scheduler.Job
		}{
			{checkCoreDatabasesSchedule, instances.CheckCoreDatabases},
			{checkWALCheckpointsSchedule, instances.CheckWALCheckpoints},
			{dailyMaintenanceSchedule, instances.DailyMaintenance},
		} {
			if err := sched.AddJob(entry.schedule, entry.job); err != nil {
				return nil, err
			}
		}
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, err
		}
	}

	log.Info().Strs("jobs", sched.Jobs()).Msg("Jobs registered")

	return instances, nil
}
