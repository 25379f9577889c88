package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"grocer-be/internal/coupon"
	"grocer-be/internal/identity"
	"grocer-be/internal/logger"
	"grocer-be/internal/product"
	"grocer-be/internal/realtime"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// FetchTimeout bounds a shared cart query.
	FetchTimeout = 10 * time.Second

	AppliedCouponTTL = 24 * time.Hour
	CleanupInterval  = time.Hour
)

// Service is the cart engine. Every operation is scoped to an owner; an empty
// owner id means there is no signed-in user.
type Service interface {
	ListCart(ctx context.Context, ownerID string) ([]*LineView, error)
	AddItem(ctx context.Context, ownerID, productID string, quantity int) (*LineView, error)
	UpdateQuantity(ctx context.Context, lineID, ownerID string, quantity int) (bool, error)
	RemoveItem(ctx context.Context, lineID, ownerID string) (bool, error)
	ClearCart(ctx context.Context, ownerID string) (bool, error)

	ApplyCoupon(ctx context.Context, ownerID, code string) (*coupon.Coupon, error)
	RemoveCoupon(ownerID string)
	AppliedCoupon(ownerID string) *coupon.Coupon

	Totals(ctx context.Context, ownerID string) (Totals, error)

	Watch(ctx context.Context, ownerID string, onChange func([]*LineView)) error
	Ready(ctx context.Context) error
}

// Engine remembers the coupon each owner applied and nothing else about a
// cart; lines are always read from the store. Fetches for the same owner are
// collapsed, and every fetch takes a sequence number so a watcher never
// delivers an older result after a newer one.
type Engine struct {
	repo    Repository
	coupons coupon.Repository
	feed    realtime.Subscriber
	now     func() time.Time

	group singleflight.Group
	seq   atomic.Uint64

	mu      sync.Mutex
	applied map[string]*appliedCoupon
}

type appliedCoupon struct {
	coupon   *coupon.Coupon
	lastSeen time.Time
}

// snapshot is one fetch result and the sequence number it was started with.
type snapshot struct {
	seq   uint64
	lines []*LineView
}

var _ Service = (*Engine)(nil)

// NewEngine builds the cart engine. feed may be nil, in which case Watch
// returns ErrNoChangeFeed.
func NewEngine(repo Repository, coupons coupon.Repository, feed realtime.Subscriber) *Engine {
	return &Engine{
		repo:    repo,
		coupons: coupons,
		feed:    feed,
		now:     time.Now,
		applied: make(map[string]*appliedCoupon),
	}
}

func (e *Engine) Ready(ctx context.Context) error {
	if err := e.repo.Probe(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// ListCart always reads from the store, newest line first.
func (e *Engine) ListCart(ctx context.Context, ownerID string) ([]*LineView, error) {
	if ownerID == "" {
		return []*LineView{}, nil
	}
	snap, err := e.fetch(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return snap.lines, nil
}

func (e *Engine) Totals(ctx context.Context, ownerID string) (Totals, error) {
	lines, err := e.ListCart(ctx, ownerID)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(lines, e.AppliedCoupon(ownerID)), nil
}

// fetch reads the owner's lines, sharing the query with concurrent callers.
// The query is detached from the caller that started it, so one caller going
// away does not fail the others; each caller still stops waiting when its own
// ctx is done.
func (e *Engine) fetch(ctx context.Context, ownerID string) (snapshot, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "fetch"),
		zap.String("owner_id", ownerID),
	)

	ch := e.group.DoChan(ownerID, func() (any, error) {
		seq := e.seq.Add(1)

		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()

		lines, err := e.repo.ListByOwner(qctx, ownerID)
		if err != nil {
			return nil, unavailable(err)
		}
		return snapshot{seq: seq, lines: lines}, nil
	})

	select {
	case <-ctx.Done():
		return snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			log.Warn("failed to fetch cart", zap.Error(res.Err))
			return snapshot{}, res.Err
		}
		log.Debug("cart fetched", zap.Bool("shared", res.Shared))
		snap := res.Val.(snapshot)
		return snapshot{seq: snap.seq, lines: cloneLines(snap.lines)}, nil
	}
}

func (e *Engine) AddItem(ctx context.Context, ownerID, productID string, quantity int) (*LineView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.String("owner_id", ownerID),
		zap.String("product_id", productID),
	)

	if ownerID == "" {
		return nil, identity.ErrUnauthenticated
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrProductRequired
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		quantity = 1
	}

	line, err := e.repo.UpsertIncrement(ctx, AddItemParams{
		OwnerID:   ownerID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			log.Warn("product not found")
			return nil, err
		}
		log.Error("failed to add item", zap.Error(err))
		return nil, &PersistenceError{Op: "add item", Err: err}
	}

	log.Info("item added", zap.String("line_id", line.ID), zap.Int("quantity", line.Quantity))
	return line, nil
}

// UpdateQuantity sets a line's quantity. Quantities below one are ignored;
// use RemoveItem to delete a line.
func (e *Engine) UpdateQuantity(ctx context.Context, lineID, ownerID string, quantity int) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateQuantity"),
		zap.String("line_id", lineID),
	)

	if quantity < 1 {
		log.Debug("quantity below one ignored", zap.Int("quantity", quantity))
		return false, nil
	}
	if ownerID == "" {
		return false, identity.ErrUnauthenticated
	}

	n, err := e.repo.UpdateQuantity(ctx, UpdateQuantityParams{
		LineID:   lineID,
		OwnerID:  ownerID,
		Quantity: quantity,
	})
	if err != nil {
		log.Error("failed to update quantity", zap.Error(err))
		return false, &PersistenceError{Op: "update quantity", Err: err}
	}
	if n == 0 {
		return false, nil
	}

	return true, nil
}

// RemoveItem deletes a line. Removing a line that does not exist is not an
// error; it reports false.
func (e *Engine) RemoveItem(ctx context.Context, lineID, ownerID string) (bool, error) {
	if ownerID == "" {
		return false, identity.ErrUnauthenticated
	}

	n, err := e.repo.Delete(ctx, lineID, ownerID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to remove item",
			zap.String("layer", "service"),
			zap.String("line_id", lineID),
			zap.Error(err),
		)
		return false, &PersistenceError{Op: "remove item", Err: err}
	}
	if n == 0 {
		return false, nil
	}

	return true, nil
}

// ClearCart deletes every line of the owner. An already empty cart is a
// successful no-op.
func (e *Engine) ClearCart(ctx context.Context, ownerID string) (bool, error) {
	if ownerID == "" {
		return false, identity.ErrUnauthenticated
	}

	n, err := e.repo.DeleteByOwner(ctx, ownerID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to clear cart",
			zap.String("layer", "service"),
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return false, &PersistenceError{Op: "clear cart", Err: err}
	}

	logger.FromCtx(ctx).Info("cart cleared", zap.Int64("deleted", n))
	return true, nil
}

// ApplyCoupon validates code server-side, then re-checks the minimum purchase
// against the owner's current subtotal. The coupon stays applied until
// RemoveCoupon or another ApplyCoupon; cart changes do not re-validate it.
func (e *Engine) ApplyCoupon(ctx context.Context, ownerID, code string) (*coupon.Coupon, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ApplyCoupon"),
		zap.String("owner_id", ownerID),
	)

	if ownerID == "" {
		return nil, identity.ErrUnauthenticated
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCouponCodeRequired
	}

	res, err := e.coupons.Validate(ctx, code, ownerID)
	if err != nil {
		log.Error("coupon validation failed", zap.Error(err))
		return nil, &PersistenceError{Op: "validate coupon", Err: err}
	}
	if !res.Valid {
		reason := res.Message
		if reason == "" {
			reason = "invalid coupon code"
		}
		log.Info("coupon rejected", zap.String("reason", reason))
		return nil, &InvalidCouponError{Reason: reason}
	}

	c := coupon.MapOffer(res.Offer)
	if c.MinPurchaseAmount != nil && *c.MinPurchaseAmount > 0 {
		lines, err := e.ListCart(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		subtotal := ComputeTotals(lines, nil).Subtotal
		if subtotal < *c.MinPurchaseAmount {
			log.Info("minimum purchase not met",
				zap.Float64("required", *c.MinPurchaseAmount),
				zap.Float64("actual", subtotal),
			)
			return nil, &MinimumPurchaseNotMetError{Required: *c.MinPurchaseAmount, Actual: subtotal}
		}
	}

	e.mu.Lock()
	e.applied[ownerID] = &appliedCoupon{coupon: c, lastSeen: e.now()}
	e.mu.Unlock()

	log.Info("coupon applied", zap.String("code", c.Code), zap.String("kind", string(c.Kind)))
	return c, nil
}

func (e *Engine) RemoveCoupon(ownerID string) {
	e.mu.Lock()
	delete(e.applied, ownerID)
	e.mu.Unlock()
}

// AppliedCoupon returns the owner's coupon. A coupon nobody has read or
// applied for AppliedCouponTTL is forgotten.
func (e *Engine) AppliedCoupon(ownerID string) *coupon.Coupon {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.applied[ownerID]
	if !ok {
		return nil
	}
	now := e.now()
	if now.Sub(a.lastSeen) > AppliedCouponTTL {
		delete(e.applied, ownerID)
		return nil
	}
	a.lastSeen = now
	return a.coupon
}

// Run drops idle applied coupons every CleanupInterval until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cleanup()
		}
	}
}

func (e *Engine) cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for ownerID, a := range e.applied {
		if e.now().Sub(a.lastSeen) > AppliedCouponTTL {
			delete(e.applied, ownerID)
		}
	}
}

// Watch delivers the owner's full cart to onChange once at start and again
// after change events. Events that arrive while a fetch is running are
// collapsed into a single follow-up fetch. Watch blocks until ctx is done and
// never calls onChange after that.
func (e *Engine) Watch(ctx context.Context, ownerID string, onChange func([]*LineView)) error {
	if e.feed == nil {
		return ErrNoChangeFeed
	}
	if ownerID == "" {
		return identity.ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Watch"),
		zap.String("owner_id", ownerID),
	)

	events, err := e.feed.Subscribe(ctx, realtime.Filter{Table: TableName, OwnerID: ownerID})
	if err != nil {
		return err
	}

	var delivered uint64
	refresh := func() {
		// join nothing that started before the event
		e.group.Forget(ownerID)
		snap, err := e.fetch(ctx, ownerID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("refresh failed", zap.Error(err))
			return
		}
		if !deliverable(&delivered, snap) {
			log.Debug("stale refresh dropped", zap.Uint64("seq", snap.seq))
			return
		}
		onChange(snap.lines)
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return realtime.ErrHubClosed
			}
			drained := drain(events)
			log.Debug("change received", zap.Int("coalesced", drained+1))
			refresh()
		}
	}
}

// deliverable reports whether snap is newer than the last delivered one and
// records it if so.
func deliverable(last *uint64, snap snapshot) bool {
	if snap.seq <= *last {
		return false
	}
	*last = snap.seq
	return true
}

// drain empties whatever is buffered on events without blocking.
func drain(events <-chan realtime.Event) int {
	n := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func cloneLines(lines []*LineView) []*LineView {
	out := make([]*LineView, len(lines))
	copy(out, lines)
	return out
}
