package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
)

// reminderLead is how far ahead of an event's start the reminder goes out.
const reminderLead = time.Hour

// Scheduler periodically checks for event reminders to send.
type Scheduler struct {
	mu       sync.Mutex
	service  *Service
	push     *store.PushStore
	events   *store.EventStore
	logger   *slog.Logger
	interval time.Duration
	reminded map[int64]bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(svc *Service, pushStore *store.PushStore, eventStore *store.EventStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		events:   eventStore,
		logger:   logger.With("component", "push"),
		interval: time.Minute,
		reminded: make(map[int64]bool),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()
	events, err := s.events.ListBetween(now, now.Add(reminderLead))
	if err != nil {
		s.logger.Error("list upcoming events", "error", err)
		return
	}

	for _, event := range events {
		s.mu.Lock()
		already := s.reminded[event.ID]
		if !already {
			s.reminded[event.ID] = true
		}
		s.mu.Unlock()
		if already {
			continue
		}

		minutes := int(time.Until(event.StartsAt).Minutes())
		s.SendToAll(Payload{
			Title: "Upcoming event",
			Body:  fmt.Sprintf("%s starts in %d minutes", event.Title, minutes),
			URL:   "/organization/events",
			Tag:   fmt.Sprintf("event-%d", event.ID),
		})
	}
}

// NotifyAnnouncement pushes an urgent announcement to every subscriber.
// Handlers call it for high-priority posts only.
func (s *Scheduler) NotifyAnnouncement(a *model.Announcement) {
	s.SendToAll(Payload{
		Title: a.Title,
		Body:  a.Message,
		URL:   "/organization/announcements",
		Tag:   fmt.Sprintf("announcement-%d", a.ID),
	})
}

// SendToAll fans a payload out to every stored subscription, pruning the
// ones the push service reports as gone.
func (s *Scheduler) SendToAll(payload Payload) {
	subs, err := s.push.List()
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		if err := s.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("prune expired subscription", "error", err)
				}
			} else {
				s.logger.Warn("send push", "error", err)
			}
		}
	}
}
