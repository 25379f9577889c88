package realtime

import (
	"context"
	"encoding/json"
	"time"

	"grocer-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const pingInterval = 90 * time.Second

// notifier is the part of *pq.Listener the feed uses.
type notifier interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type publisher interface {
	Publish(ev Event) int
}

// PGFeed turns Postgres NOTIFY payloads emitted by table triggers into
// events on a Hub.
type PGFeed struct {
	listener notifier
	channel  string
	hub      publisher
}

func NewPGFeed(dsn, channel string, hub *Hub) *PGFeed {
	log := logger.L().With(zap.String("component", "pgfeed"), zap.String("channel", channel))

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnectionAttemptFailed:
				log.Warn("listener connection attempt failed", zap.Error(err))
			case pq.ListenerEventDisconnected:
				log.Warn("listener disconnected", zap.Error(err))
			case pq.ListenerEventReconnected:
				log.Info("listener reconnected")
			}
		})

	return newPGFeed(listener, channel, hub)
}

func newPGFeed(n notifier, channel string, hub publisher) *PGFeed {
	return &PGFeed{listener: n, channel: channel, hub: hub}
}

// Run listens until ctx is done. The listener is closed on return.
func (f *PGFeed) Run(ctx context.Context) error {
	log := logger.FromCtx(ctx).With(zap.String("component", "pgfeed"), zap.String("channel", f.channel))
	defer f.listener.Close()

	if err := f.listener.Listen(f.channel); err != nil {
		log.Error("listen failed", zap.Error(err))
		return err
	}
	log.Info("listening for changes")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	notifications := f.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			f.handle(ctx, n)
		case <-ticker.C:
			go func() {
				if err := f.listener.Ping(); err != nil {
					log.Warn("listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (f *PGFeed) handle(ctx context.Context, n *pq.Notification) {
	// pq sends nil after re-establishing a dropped connection
	if n == nil {
		f.hub.Publish(Event{Op: OpResync})
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		logger.FromCtx(ctx).Warn("dropping malformed notification",
			zap.String("component", "pgfeed"),
			zap.String("payload", n.Extra),
			zap.Error(err),
		)
		return
	}
	f.hub.Publish(ev)
}
