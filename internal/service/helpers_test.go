package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

var baseTime = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type bridgeCall struct {
	Number       string
	Title        string
	Participants []string
	ChannelID    string
	Text         string
	Sender       string
}

type fakeBridge struct {
	mu        sync.Mutex
	channelID string
	createErr error
	postErr   error
	creates   []bridgeCall
	posts     []bridgeCall
}

func (b *fakeBridge) CreateChannelForTicket(_ context.Context, number, title string, participants []string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates = append(b.creates, bridgeCall{Number: number, Title: title, Participants: participants})
	if b.createErr != nil {
		return "", b.createErr
	}
	return b.channelID, nil
}

func (b *fakeBridge) PostMessage(_ context.Context, channelID, text, sender string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append(b.posts, bridgeCall{ChannelID: channelID, Text: text, Sender: sender})
	return b.postErr
}

// flakyActivities fails the first `failures` appends.
type flakyActivities struct {
	repository.ActivityRepository
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyActivities) Append(ctx context.Context, activity *domain.Activity) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("activity store unavailable")
	}
	return f.ActivityRepository.Append(ctx, activity)
}

type harness struct {
	store         *memory.Store
	clock         *fakeClock
	logs          *observer.ObservedLogs
	logger        *zap.Logger
	dispatcher    events.Dispatcher
	notifications *NotificationService
	tickets       *TicketService
	activities    repository.ActivityRepository
	numbers       []string
}

type harnessOption func(*harness, *TicketDependencies)

// withFlakyActivities makes the first failures activity appends error.
func withFlakyActivities(failures int) harnessOption {
	return func(h *harness, deps *TicketDependencies) {
		repo := &flakyActivities{ActivityRepository: h.store.Activities(), failures: failures}
		h.activities = repo
		deps.ActivityRepo = repo
	}
}

// withNumbers makes the generator hand out numbers in order, repeating the last.
func withNumbers(numbers ...string) harnessOption {
	return func(h *harness, deps *TicketDependencies) {
		h.numbers = numbers
		i := 0
		deps.NumberGenerator = func(time.Time) string {
			n := numbers[min(i, len(numbers)-1)]
			i++
			return n
		}
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	h := &harness{
		store:  memory.NewStore(),
		clock:  &fakeClock{now: baseTime},
		logs:   logs,
		logger: logger,
	}
	h.activities = h.store.Activities()
	h.dispatcher = events.NewInMemoryDispatcher(logger)
	h.notifications = NewNotificationService(h.store.Notifications(), logger, h.clock.Now)

	deps := TicketDependencies{
		TicketRepo:   h.store.Tickets(),
		CommentRepo:  h.store.Comments(),
		ActivityRepo: h.activities,
		UserRepo:     h.store.Users(),
		Notifier:     h.notifications,
		Dispatcher:   h.dispatcher,
		Logger:       logger,
		Config:       config.TicketsConfig{NumberAttempts: 3, DefaultPageSize: 20, MaxPageSize: 50},
		Clock:        h.clock.Now,
	}
	for _, opt := range opts {
		opt(h, &deps)
	}
	h.tickets = NewTicketService(deps)
	return h
}

func (h *harness) user(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:  username,
		FullName:  fmt.Sprintf("%s full", username),
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: h.clock.Now(),
		UpdatedAt: h.clock.Now(),
	}
	require.NoError(t, h.store.Users().Create(context.Background(), u))
	return u
}

func (h *harness) inbox(t *testing.T, u *domain.User) []domain.Notification {
	t.Helper()
	items, err := h.store.Notifications().ListByRecipient(context.Background(), u.ID, false, 100)
	require.NoError(t, err)
	return items
}

func (h *harness) trail(t *testing.T, ticketID string) []domain.Activity {
	t.Helper()
	items, err := h.activities.ListByTicket(context.Background(), ticketID, true)
	require.NoError(t, err)
	return items
}

func (h *harness) createTicket(t *testing.T, actor *domain.User, title string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title:       title,
		Description: "The device stopped working this morning.",
	})
	require.NoError(t, err)
	return ticket
}

func ptr[T any](v T) *T { return &v }
