package permission

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"grocer-be/internal/kvstore"
	"grocer-be/internal/logger"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Reconciler tracks permission state for one device and the re-prompt
// policy stored for it. State only changes through CheckAll, Request and
// RequestAll.
type Reconciler struct {
	device Device
	store  kvstore.Store

	mu    sync.Mutex
	state State
}

func NewReconciler(device Device, store kvstore.Store) *Reconciler {
	return &Reconciler{device: device, store: store, state: NewState()}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) set(k Kind, s Status) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = r.state.With(k, s)
	return r.state
}

// CheckAll reads every kind without prompting. A kind whose query fails is
// recorded as undetermined and the failures are returned together.
func (r *Reconciler) CheckAll(ctx context.Context) (State, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "permission"),
		zap.String("method", "CheckAll"),
	)

	var errs error
	for _, k := range Kinds {
		s, err := r.device.Status(ctx, k)
		if err != nil {
			log.Warn("permission check failed", zap.String("kind", string(k)), zap.Error(err))
			errs = multierr.Append(errs, &QueryFailedError{Kind: k, Err: err})
			s = StatusUndetermined
		}
		r.set(k, s)
	}

	state := r.State()
	log.Debug("permissions checked", zap.Bool("all_granted", state.AllGranted))
	return state, errs
}

// Request asks for one kind. A kind already denied usually comes back
// denied; offer a settings redirect instead of asking again.
func (r *Reconciler) Request(ctx context.Context, k Kind) (Status, error) {
	if !k.Valid() {
		return StatusUndetermined, &QueryFailedError{Kind: k, Err: ErrUnknownKind}
	}

	s, err := r.device.Request(ctx, k)
	if err != nil {
		logger.FromCtx(ctx).Warn("permission request failed",
			zap.String("layer", "permission"),
			zap.String("kind", string(k)),
			zap.Error(err),
		)
		r.set(k, StatusUndetermined)
		return StatusUndetermined, &QueryFailedError{Kind: k, Err: err}
	}

	r.set(k, s)
	return s, nil
}

// RequestAll asks for camera, media library and notifications one after
// another so system dialogs never overlap. Failures do not stop the batch.
func (r *Reconciler) RequestAll(ctx context.Context) (State, error) {
	var errs error
	for _, k := range Kinds {
		if err := ctx.Err(); err != nil {
			return r.State(), multierr.Append(errs, err)
		}
		if _, err := r.Request(ctx, k); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return r.State(), errs
}

// LoadPolicy reads the stored policy. An unreadable timestamp is treated as
// missing.
func (r *Reconciler) LoadPolicy(ctx context.Context) (Policy, error) {
	var p Policy

	seen, _, err := r.store.Get(ctx, KeyHasSeenScreen)
	if err != nil {
		return p, fmt.Errorf("load %s: %w", KeyHasSeenScreen, err)
	}
	p.HasSeenScreen = seen == "true"

	raw, ok, err := r.store.Get(ctx, KeyLastCheckTime)
	if err != nil {
		return p, fmt.Errorf("load %s: %w", KeyLastCheckTime, err)
	}
	if ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			t := time.UnixMilli(ms)
			p.LastCheckedAt = &t
		}
	}
	return p, nil
}

func (r *Reconciler) MarkScreenSeen(ctx context.Context) error {
	if err := r.store.Set(ctx, KeyHasSeenScreen, "true"); err != nil {
		return fmt.Errorf("save %s: %w", KeyHasSeenScreen, err)
	}
	return nil
}

// RecordCheckTimestamp stores now as epoch milliseconds.
func (r *Reconciler) RecordCheckTimestamp(ctx context.Context, now time.Time) error {
	if err := r.store.Set(ctx, KeyLastCheckTime, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("save %s: %w", KeyLastCheckTime, err)
	}
	return nil
}

// ShouldPromptNow checks every kind, then decides against the stored policy.
// Once the user has seen the screen and the cooldown is over, now becomes
// the new check time so the next prompt waits a full interval.
func (r *Reconciler) ShouldPromptNow(ctx context.Context, now time.Time) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "permission"),
		zap.String("method", "ShouldPromptNow"),
	)

	state, checkErr := r.CheckAll(ctx)
	if state.AllGranted {
		return false, checkErr
	}

	policy, err := r.LoadPolicy(ctx)
	if err != nil {
		return false, multierr.Append(checkErr, err)
	}

	show := ShouldShowPermissionScreen(state, policy, now)
	if policy.HasSeenScreen && cooldownElapsed(policy, now) {
		if err := r.RecordCheckTimestamp(ctx, now); err != nil {
			log.Error("failed to record check time", zap.Error(err))
			checkErr = multierr.Append(checkErr, err)
		}
	}

	log.Debug("prompt decision", zap.Bool("show", show), zap.Bool("seen", policy.HasSeenScreen))
	return show, checkErr
}
