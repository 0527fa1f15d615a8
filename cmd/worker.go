package cmd

import (
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/service"
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Drain the job outbox and run scheduled cleanup",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().Bool("once", false, "process a single batch of due jobs and exit")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup()
	if err != nil {
		return err
	}
	defer d.Close()

	if once, _ := cmd.Flags().GetBool("once"); once {
		n, err := d.JobQueue.RunOnce(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("Processed jobs", zap.Int("count", n))
		return nil
	}

	stopWorkers, err := startWorkers(ctx, d)
	if err != nil {
		return err
	}
	defer stopWorkers()

	// The asynq server executes what the outbox queue forwards
	if v.GetString("jobs.backend") == "asynq" {
		srv := jobs.NewAsynqServer(internal.RedisOpt(), v.GetInt("jobs.workers"))
		if err := srv.Start(jobs.NewServeMux(d.Registry)); err != nil {
			return err
		}
		defer srv.Shutdown()
	}

	zap.L().Info("Worker started", zap.String("backend", v.GetString("jobs.backend")))
	<-ctx.Done()
	zap.L().Info("Worker stopping")

	return nil
}

// startWorkers runs the outbox queue and the cleanup schedule until ctx is
// done or the returned func is called, which also waits for both to wind
// down.
func startWorkers(ctx context.Context, d *internal.Deps) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	sched := service.NewScheduler(ctx)
	if err := sched.Add(v.GetString("cleanup.schedule"), d.Cleanup); err != nil {
		cancel()
		return nil, err
	}

	d.JobQueue.Start(ctx)
	sched.Start()

	return func() {
		cancel()
		sched.Stop()
		d.JobQueue.Wait()
	}, nil
}
