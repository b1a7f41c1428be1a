package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/bootstrap"
	"github.com/hackgods/hospital-booking/internal/catalog"
	"github.com/hackgods/hospital-booking/internal/config"
	"github.com/hackgods/hospital-booking/internal/logger"
)

func main() {
	count := flag.Int("appointments", 500, "number of bookings to attempt")
	users := flag.Int("users", 100, "number of distinct patients")
	days := flag.Int("days", 14, "book across this many days starting tomorrow")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("seed", cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, *count, *users, *days); err != nil {
		logger.Exit(log, "seed failed", err)
	}
}

func run(cfg config.Config, log *zap.Logger, count, users, days int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backends, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backends.Close()

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	svc := appointment.NewService(backends.Repo, backends.Locker, zap.NewNop())

	stats, err := seedAppointments(ctx, svc, cat, count, users, days)
	if err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}

	log.Info("seed complete",
		zap.Int("created", stats.created),
		zap.Int("slot_taken", stats.taken),
		zap.Int("confirmed", stats.confirmed),
		zap.Int("cancelled", stats.cancelled),
	)
	return nil
}

type seedStats struct {
	created, taken, confirmed, cancelled int
}

// seedAppointments books random catalog slots for fake patients through the
// booking service, then confirms or cancels a share of them.
func seedAppointments(ctx context.Context, svc *appointment.Service, cat *catalog.Catalog, count, users, days int) (seedStats, error) {
	var stats seedStats

	selections := cat.Selections()
	if len(selections) == 0 {
		return stats, errors.New("catalog has no doctors")
	}
	if users <= 0 || days <= 0 {
		return stats, errors.New("users and days must be positive")
	}

	userIDs := make([]string, users)
	for i := range userIDs {
		userIDs[i] = gofakeit.UUID()
	}

	start := time.Now().AddDate(0, 0, 1)
	for i := 0; i < count; i++ {
		sel := selections[gofakeit.Number(0, len(selections)-1)]
		if len(sel.Times) == 0 {
			continue
		}

		appt, err := svc.Create(ctx, appointment.CreateInput{
			UserID:       userIDs[gofakeit.Number(0, users-1)],
			HospitalID:   sel.HospitalID,
			HospitalName: sel.HospitalName,
			CategoryID:   sel.CategoryID,
			CategoryName: sel.CategoryName,
			DoctorID:     sel.DoctorID,
			DoctorName:   sel.DoctorName,
			Date:         start.AddDate(0, 0, gofakeit.Number(0, days-1)).Format(time.DateOnly),
			Time:         sel.Times[gofakeit.Number(0, len(sel.Times)-1)],
		})
		switch {
		case errors.Is(err, appointment.ErrSlotTaken):
			stats.taken++
			continue
		case err != nil:
			return stats, err
		}
		stats.created++

		switch roll := gofakeit.Number(1, 10); {
		case roll <= 4:
			if _, err := svc.Confirm(ctx, appt.ID); err != nil {
				return stats, err
			}
			stats.confirmed++
		case roll == 10:
			if _, err := svc.Cancel(ctx, appt.ID); err != nil {
				return stats, err
			}
			stats.cancelled++
		}
	}
	return stats, nil
}
