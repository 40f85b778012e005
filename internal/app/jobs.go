package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// images younger than this may belong to a request still in flight
const sweepMinAge = 10 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if interval := a.appConfig.Storage.SweepInterval; interval != "" {
		if _, err := time.ParseDuration(interval); err != nil {
			return fmt.Errorf("invalid storage.sweep_interval %q: %w", interval, err)
		}
		if _, err := a.sched.AddFunc("@every "+interval, a.SchedImageSweepTask); err != nil {
			return fmt.Errorf("init image sweep job: %w", err)
		}
		zap.S().Infof("orphan image sweep scheduled every %s", interval)
	}

	a.sched.Start()
	return nil
}

// SchedImageSweepTask removes image files no product references
func (a *Application) SchedImageSweepTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Errorf("image sweep panic: %v\n%s", err, debug.Stack())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	refs, err := a.productService.ReferencedImages(ctx)
	if err != nil {
		zap.L().Error("image sweep: list products", zap.Error(err))
		return
	}
	removed, err := a.images.Sweep(ctx, refs, sweepMinAge)
	if err != nil {
		zap.L().Error("image sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		zap.L().Info("removed orphan images", zap.Int("count", removed), zap.String("dir", a.images.Dir()))
	}
}
