package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig(30 * time.Minute)

	assert.True(t, config.Enabled)
	assert.Len(t, config.TaskConfigs, 1)

	passCfg := config.TaskConfigs[TaskIDSyncPass]
	assert.True(t, passCfg.Enabled)
	assert.Equal(t, 30*time.Minute, passCfg.Interval)
}

func TestDefaultSchedulerConfig_NonPositiveInterval(t *testing.T) {
	config := DefaultSchedulerConfig(0)

	assert.Equal(t, time.Hour, config.GetTaskConfig(TaskIDSyncPass).Interval)
}

func TestSchedulerConfig_GetTaskConfig(t *testing.T) {
	config := DefaultSchedulerConfig(time.Hour)

	// Non-existent task
	unknownCfg := config.GetTaskConfig("unknown-task")
	assert.False(t, unknownCfg.Enabled)
	assert.Equal(t, time.Duration(0), unknownCfg.Interval)
}

func TestSchedulerConfig_GetTaskConfig_NilMap(t *testing.T) {
	config := SchedulerConfig{
		Enabled:     true,
		TaskConfigs: nil,
	}

	cfg := config.GetTaskConfig("any-task")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, time.Duration(0), cfg.Interval)
}

func TestScheduledTask_IsDue(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"disabled", ScheduledTask{Enabled: false}, false},
		{"never scheduled", ScheduledTask{Enabled: true}, true},
		{"past", ScheduledTask{Enabled: true, NextRun: now.Add(-time.Minute)}, true},
		{"exactly now", ScheduledTask{Enabled: true, NextRun: now}, true},
		{"future", ScheduledTask{Enabled: true, NextRun: now.Add(time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsDue(now))
		})
	}
}
