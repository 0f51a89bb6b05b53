package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PollScheduler sends a PollTick to every scheduled device actor, either at
// a fixed interval or on a cron expression.
type PollScheduler struct {
	mu        sync.Mutex
	scheduler quartz.Scheduler
	root      *actor.RootContext
	cancel    context.CancelFunc
	jobs      map[string]*quartz.JobKey
	logger    *zap.Logger
}

type pollJob struct {
	deviceId string
	pid      *actor.PID
	root     *actor.RootContext
}

func (j *pollJob) Execute(_ context.Context) error {
	j.root.Send(j.pid, domain.PollTick{})
	return nil
}

func (j *pollJob) Description() string {
	return fmt.Sprintf("poll device %s", j.deviceId)
}

func NewPollScheduler(root *actor.RootContext, zapLogger *zap.Logger) *PollScheduler {
	logger.SetDefault(logger.NewSimpleLogger(zap.NewStdLog(zapLogger.Named("quartz")), quartzLevel(zapLogger.Level())))
	return &PollScheduler{
		scheduler: quartz.NewStdScheduler(),
		root:      root,
		jobs:      make(map[string]*quartz.JobKey),
		logger:    zapLogger,
	}
}

// quartzLevel maps the zap level onto the go-quartz logger levels.
func quartzLevel(level zapcore.Level) logger.Level {
	switch {
	case level < zapcore.DebugLevel:
		return logger.LevelTrace
	case level == zapcore.DebugLevel:
		return logger.LevelDebug
	case level == zapcore.InfoLevel:
		return logger.LevelInfo
	case level == zapcore.WarnLevel:
		return logger.LevelWarn
	default:
		return logger.LevelError
	}
}

func (s *PollScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.scheduler.Start(ctx)
}

// Schedule polls pid every interval, or on cron when it is not empty.
// A device scheduled twice keeps the last schedule.
func (s *PollScheduler) Schedule(deviceId string, pid *actor.PID, interval time.Duration, cron string) error {
	var trigger quartz.Trigger
	if cron != "" {
		cronTrigger, err := quartz.NewCronTrigger(cron)
		if err != nil {
			return fmt.Errorf("device %s: %w", deviceId, err)
		}
		trigger = cronTrigger
	} else {
		if interval <= 0 {
			return fmt.Errorf("device %s: invalid poll interval %s", deviceId, interval)
		}
		trigger = quartz.NewSimpleTrigger(interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.jobs[deviceId]; ok {
		_ = s.scheduler.DeleteJob(key)
	}
	key := quartz.NewJobKey(domain.DeviceActorId(deviceId))
	job := &pollJob{deviceId: deviceId, pid: pid, root: s.root}
	if err := s.scheduler.ScheduleJob(quartz.NewJobDetail(job, key), trigger); err != nil {
		return err
	}
	s.jobs[deviceId] = key
	s.logger.Debug("poll scheduled", zap.String("device", deviceId), zap.String("trigger", trigger.Description()))
	return nil
}

func (s *PollScheduler) Unschedule(deviceId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.jobs[deviceId]
	if !ok {
		return nil
	}
	delete(s.jobs, deviceId)
	return s.scheduler.DeleteJob(key)
}

func (s *PollScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.scheduler.Wait(ctx)
	s.cancel()
	s.cancel = nil
}
