/*
Package cron schedules the Day Finalizer at local midnight (or any cron
spec) via robfig/cron/v3, resolving spec.md §9's "how is midnight
detected" open question in favor of a scheduled boundary over per-minute
polling (see DESIGN.md).
*/
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/gamify"
)

// Daily wraps a robfig/cron scheduler that finalizes the previous day's
// plan and sweeps carry-over candidates forward, once per fire.
type Daily struct {
	c      *cron.Cron
	fin    *gamify.Finalizer
	userID string
	logger *zap.SugaredLogger

	carryOver func(ctx context.Context) error
}

// New builds a Daily scheduler. spec is a standard 5-field cron
// expression interpreted in local time (default "0 0 * * *").
func New(spec string, fin *gamify.Finalizer, userID string, carryOver func(ctx context.Context) error, logger *zap.SugaredLogger) (*Daily, error) {
	c := cron.New(cron.WithLocation(time.Local))
	d := &Daily{c: c, fin: fin, userID: userID, carryOver: carryOver, logger: logger}

	if _, err := c.AddFunc(spec, d.fireDailyClose); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Daily) Start() { d.c.Start() }

func (d *Daily) Stop() {
	ctx := d.c.Stop()
	<-ctx.Done()
}

// fireDailyClose finalizes yesterday (the day that just ended at this
// midnight boundary) and carries forward any still-open tasks.
func (d *Daily) fireDailyClose() {
	ctx := context.Background()
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	if _, err := d.fin.FinalizeDay(ctx, d.userID, yesterday); err != nil {
		d.logger.Warnw("scheduled finalize failed", "date", yesterday, "error", err)
	}
	if d.carryOver != nil {
		if err := d.carryOver(ctx); err != nil {
			d.logger.Warnw("scheduled carry-over sweep failed", "error", err)
		}
	}
}
