package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRun_InvalidConfig(t *testing.T) {
	err := run(SimConfig{Workers: 0, Duration: time.Second, Users: 1, Days: 1}, zap.NewNop())
	assert.ErrorContains(t, err, "invalid config: SIM_WORKERS must be > 0")
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, validateConfig(SimConfig{Workers: 2, Duration: time.Second, Users: 10, Days: 1}))
	assert.Error(t, validateConfig(SimConfig{Workers: 2, Users: 10, Days: 1}))
	assert.Error(t, validateConfig(SimConfig{Workers: 2, Duration: time.Second, Days: 1}))
}
