package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/catalog"
	"github.com/hackgods/hospital-booking/internal/config"
)

func TestSeedAppointments(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	repo := appointment.NewMemoryRepository()
	svc := appointment.NewService(repo, nil, nil)

	stats, err := seedAppointments(context.Background(), svc, cat, 200, 20, 3)
	require.NoError(t, err)

	assert.Equal(t, 200, stats.created+stats.taken)
	assert.LessOrEqual(t, stats.confirmed+stats.cancelled, stats.created)

	all, err := svc.GetAll(context.Background(), appointment.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, stats.created)

	held := map[string]int{}
	for _, a := range all {
		if a.Status.Active() {
			held[a.Slot().Key()]++
		}
	}
	for slot, n := range held {
		assert.Equal(t, 1, n, slot)
	}
}

func TestSeedAppointments_RejectsBadArgs(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	svc := appointment.NewService(appointment.NewMemoryRepository(), nil, nil)

	_, err = seedAppointments(context.Background(), svc, cat, 10, 0, 3)
	assert.Error(t, err)
}

func TestRun_MemoryStore(t *testing.T) {
	err := run(config.Config{
		StoreDriver: config.StoreMemory,
		LockDriver:  config.LockLocal,
	}, zap.NewNop(), 20, 5, 2)
	assert.NoError(t, err)
}

func TestRun_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	err := run(config.Config{
		StoreDriver: config.StoreMemory,
		LockDriver:  config.LockRedis,
		RedisAddr:   addr,
	}, zap.NewNop(), 20, 5, 2)
	assert.ErrorContains(t, err, "redis connection error")
}
