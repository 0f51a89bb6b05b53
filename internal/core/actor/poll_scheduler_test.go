package actor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestPollScheduler(t *testing.T) {

	require := require.New(t)

	as := actor.NewActorSystem()
	defer as.Shutdown()

	var ticks atomic.Int32
	probe := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.PollTick); ok {
			ticks.Add(1)
		}
	}))

	scheduler := NewPollScheduler(as.Root, zap.NewNop())
	scheduler.Start()
	defer scheduler.Stop()

	require.NoError(scheduler.Schedule("dev", probe, 50*time.Millisecond, ""))
	require.Eventually(func() bool { return ticks.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(scheduler.Unschedule("dev"))
	time.Sleep(100 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load(), "no ticks after unschedule")

	assert.NoError(t, scheduler.Unschedule("dev"))
}

func TestPollSchedulerRejectsBadTriggers(t *testing.T) {

	as := actor.NewActorSystem()
	defer as.Shutdown()

	scheduler := NewPollScheduler(as.Root, zap.NewNop())
	scheduler.Start()
	defer scheduler.Stop()

	pid := as.Root.Spawn(actor.PropsFromFunc(func(actor.Context) {}))
	assert.Error(t, scheduler.Schedule("dev", pid, 0, ""))
	assert.Error(t, scheduler.Schedule("dev", pid, time.Second, "not a cron"))
	assert.NoError(t, scheduler.Schedule("dev", pid, 0, "0/5 * * * * *"))
}

func TestQuartzLevel(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(logger.LevelTrace, quartzLevel(zapcore.DebugLevel-1))
	assert.Equal(logger.LevelDebug, quartzLevel(zapcore.DebugLevel))
	assert.Equal(logger.LevelInfo, quartzLevel(zapcore.InfoLevel))
	assert.Equal(logger.LevelWarn, quartzLevel(zapcore.WarnLevel))
	assert.Equal(logger.LevelError, quartzLevel(zapcore.ErrorLevel))
	assert.Equal(logger.LevelError, quartzLevel(zapcore.FatalLevel))
}
