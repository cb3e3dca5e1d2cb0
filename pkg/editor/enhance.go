package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dixieflatline76/Retouch/pkg/render"
	"github.com/dixieflatline76/Retouch/util"
	"github.com/dixieflatline76/Retouch/util/log"
)

// Operation names a simulated enhancement.
type Operation string

const (
	OpRestore          Operation = "restore"
	OpUpscale          Operation = "upscale"
	OpRemoveBackground Operation = "remove-background"
)

// ParseOperation maps a route or CLI name onto an Operation.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpRestore, OpUpscale, OpRemoveBackground:
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown enhancement %q", ErrInvalidInput, s)
}

// Phase of the enhancement state machine.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseDone    Phase = "done"
)

// Status is the observable enhancement state.
type Status struct {
	Operation Operation `json:"operation,omitempty"`
	Phase     Phase     `json:"phase"`
	Progress  int       `json:"progress"`
}

// UpscaleFactors are the accepted upscale multipliers.
var UpscaleFactors = []float64{1.5, 2, 3, 4}

// ValidUpscaleFactor reports whether f is one of UpscaleFactors.
func ValidUpscaleFactor(f float64) bool {
	for _, known := range UpscaleFactors {
		if f == known {
			return true
		}
	}
	return false
}

// Restore preset values.
const (
	restoreNoiseReduction = 60
	restoreContrast       = 115
	restoreSaturation     = 110
	restoreSharpen        = 40
)

// Enhanceable is what the Enhancer drives. *Session implements it.
type Enhanceable interface {
	Loaded() bool
	UpdateAdjustments(ctx context.Context, fn func(*render.Adjustments)) error
	Upscale(ctx context.Context, factor float64) error
	RemoveBackground(ctx context.Context) error
}

type step struct {
	progress int
	apply    func(ctx context.Context) error
}

// Enhancer runs one simulated enhancement at a time as a sequence of
// delayed steps: Idle -> Running(progress) -> Done -> Idle. A failed step
// returns to Idle and leaves the changes of earlier steps in place.
type Enhancer struct {
	target    Enhanceable
	sched     Scheduler
	notifier  Notifier
	stepDelay time.Duration
	doneDelay time.Duration

	running    *util.Gate
	generation *util.Generation

	mu        sync.Mutex
	status    Status
	listeners []func(Status)
}

// EnhancerOptions configures NewEnhancer.
type EnhancerOptions struct {
	Scheduler        Scheduler
	Notifier         Notifier
	StepDelay        time.Duration
	DoneDisplayDelay time.Duration
}

func NewEnhancer(target Enhanceable, opts EnhancerOptions) *Enhancer {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	return &Enhancer{
		target:     target,
		sched:      opts.Scheduler,
		notifier:   opts.Notifier,
		stepDelay:  opts.StepDelay,
		doneDelay:  opts.DoneDisplayDelay,
		running:    util.NewGate(),
		generation: util.NewGeneration(),
		status:     Status{Phase: PhaseIdle},
	}
}

// OnStatus registers fn to be called after every status change.
func (e *Enhancer) OnStatus(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Enhancer) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start dispatches op by name. factor is only used by OpUpscale.
func (e *Enhancer) Start(op Operation, factor float64) error {
	switch op {
	case OpRestore:
		return e.Restore()
	case OpUpscale:
		return e.Upscale(factor)
	case OpRemoveBackground:
		return e.RemoveBackground()
	}
	return fmt.Errorf("%w: unknown enhancement %q", ErrInvalidInput, op)
}

// Restore applies the restoration preset over five timed steps, one
// parameter per step.
func (e *Enhancer) Restore() error {
	set := func(fn func(*render.Adjustments)) func(context.Context) error {
		return func(ctx context.Context) error { return e.target.UpdateAdjustments(ctx, fn) }
	}
	return e.start(OpRestore, 5, []step{
		{20, set(func(a *render.Adjustments) { a.NoiseReduction = restoreNoiseReduction })},
		{40, set(func(a *render.Adjustments) { a.Contrast = restoreContrast })},
		{60, set(func(a *render.Adjustments) { a.Saturation = restoreSaturation })},
		{80, set(func(a *render.Adjustments) { a.Sharpen = restoreSharpen })},
		{100, nil},
	}, Notification{Title: "Image restored", Description: "Noise reduction, contrast, saturation and sharpening applied", Severity: SeveritySuccess})
}

// Upscale multiplies the processed dimensions by factor.
func (e *Enhancer) Upscale(factor float64) error {
	if !ValidUpscaleFactor(factor) {
		return fmt.Errorf("%w: upscale factor %v not one of %v", ErrInvalidInput, factor, UpscaleFactors)
	}
	return e.start(OpUpscale, 0, []step{
		{10, nil},
		{30, nil},
		{50, nil},
		{80, func(ctx context.Context) error { return e.target.Upscale(ctx, factor) }},
		{100, nil},
	}, Notification{Title: "Image upscaled", Description: fmt.Sprintf("Upscaled %vx", factor), Severity: SeveritySuccess})
}

// RemoveBackground underlays the background color below the whole image.
func (e *Enhancer) RemoveBackground() error {
	return e.start(OpRemoveBackground, 0, []step{
		{10, nil},
		{30, nil},
		{50, nil},
		{70, e.target.RemoveBackground},
		{100, nil},
	}, Notification{Title: "Background removed", Description: "The background has been replaced", Severity: SeveritySuccess})
}

func (e *Enhancer) start(op Operation, initial int, steps []step, done Notification) error {
	if !e.target.Loaded() {
		return render.ErrSourceNotLoaded
	}
	if !e.running.TryAcquire() {
		return ErrOperationInProgress
	}
	gen := e.generation.Next()

	log.Printf("Enhancer: %s started", op)
	e.setStatus(Status{Operation: op, Phase: PhaseRunning, Progress: initial})
	e.schedule(gen, op, steps, 0, done)
	return nil
}

func (e *Enhancer) schedule(gen uint64, op Operation, steps []step, i int, done Notification) {
	e.sched.After(e.stepDelay, func() {
		e.runStep(gen, op, steps, i, done)
	})
}

func (e *Enhancer) runStep(gen uint64, op Operation, steps []step, i int, done Notification) {
	s := steps[i]
	if s.apply != nil {
		if err := s.apply(context.Background()); err != nil {
			e.fail(op, err)
			return
		}
	}

	if i < len(steps)-1 {
		e.setStatus(Status{Operation: op, Phase: PhaseRunning, Progress: s.progress})
		e.schedule(gen, op, steps, i+1, done)
		return
	}

	e.setStatus(Status{Operation: op, Phase: PhaseDone, Progress: 100})
	e.running.Release()
	log.Printf("Enhancer: %s done", op)
	notify(e.notifier, done.Title, done.Description, done.Severity)

	e.sched.After(e.doneDelay, func() {
		e.setStatusIf(gen, Status{Phase: PhaseIdle})
	})
}

// fail returns to Idle. Adjustments applied by earlier steps stay applied.
func (e *Enhancer) fail(op Operation, err error) {
	log.Printf("Enhancer: %s failed: %v", op, err)
	e.setStatus(Status{Phase: PhaseIdle})
	e.running.Release()
	notify(e.notifier, failureTitle(op), err.Error(), SeverityError)
}

func failureTitle(op Operation) string {
	switch op {
	case OpRestore:
		return "Restore failed"
	case OpUpscale:
		return "Upscale failed"
	default:
		return "Background removal failed"
	}
}

func (e *Enhancer) setStatus(st Status) {
	e.mu.Lock()
	e.status = st
	listeners := append([]func(Status){}, e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// setStatusIf sets st only while run gen is the latest and still Done.
func (e *Enhancer) setStatusIf(gen uint64, st Status) {
	e.mu.Lock()
	if !e.generation.IsCurrent(gen) || e.status.Phase != PhaseDone {
		e.mu.Unlock()
		return
	}
	e.status = st
	listeners := append([]func(Status){}, e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}
