package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs the periodic digest jobs. A job still running when
// its next tick arrives is skipped, and a panicking job is logged instead of
// crashing.
type SchedulerService struct {
	cron  *cron.Cron
	chain cron.Chain
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return NewSchedulerServiceWithLogger(loc, log.Default())
}

// NewSchedulerServiceWithLogger is NewSchedulerService with cron's own
// messages going to logger.
func NewSchedulerServiceWithLogger(loc *time.Location, logger *log.Logger) *SchedulerService {
	cronLogger := cron.PrintfLogger(logger)
	wrappers := []cron.JobWrapper{cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(wrappers...),
		),
		chain: cron.NewChain(wrappers...),
	}
}

// ScheduleDaily runs job every day at clock, given as HH:MM.
func (s *SchedulerService) ScheduleDaily(clock string, job func()) (cron.EntryID, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(dailySpec(hour, minute), job)
}

// ScheduleInterval runs job every interval, rounded down to whole seconds.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, fmt.Errorf("interval must be at least a second, got %s", interval)
	}
	// Schedule bypasses the chain configured on the cron.
	return s.cron.Schedule(cron.Every(interval), s.chain.Then(cron.FuncJob(job))), nil
}

// Next returns when the job with the given id runs next. The zero time means
// the scheduler is not running or the id is unknown.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

func parseClock(clock string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hour, minute, nil
}

// dailySpec uses the six-field format enabled by cron.WithSeconds.
func dailySpec(hour, minute int) string {
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}
