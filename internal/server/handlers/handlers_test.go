package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"cookplane/internal/room"
	"cookplane/internal/server/middleware"
	"cookplane/internal/session"
	"cookplane/internal/store"
	"cookplane/internal/timer"

	"github.com/google/uuid"
)

// Function-field mocks so each test scripts exactly the calls it needs.

type mockSessions struct {
	startFn           func(ctx context.Context, userID uuid.UUID, p session.StartParams) (*store.CookingSession, error)
	getFn             func(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	listActiveFn      func(ctx context.Context, userID uuid.UUID) ([]*store.CookingSession, error)
	updateProgressFn  func(ctx context.Context, userID, sessionID uuid.UUID, newStepIndex int, notes *string) (*store.CookingSession, error)
	pauseFn           func(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	resumeFn          func(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	completeFn        func(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	abandonFn         func(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	completeStepFn    func(ctx context.Context, userID, sessionID uuid.UUID, p session.CompleteStepParams) error
	stepCompletionsFn func(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.StepCompletion, error)
}

func (m *mockSessions) Start(ctx context.Context, userID uuid.UUID, p session.StartParams) (*store.CookingSession, error) {
	return m.startFn(ctx, userID, p)
}

func (m *mockSessions) Get(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.getFn(ctx, userID, sessionID)
}

func (m *mockSessions) ListActive(ctx context.Context, userID uuid.UUID) ([]*store.CookingSession, error) {
	return m.listActiveFn(ctx, userID)
}

func (m *mockSessions) UpdateProgress(ctx context.Context, userID, sessionID uuid.UUID, newStepIndex int, notes *string) (*store.CookingSession, error) {
	return m.updateProgressFn(ctx, userID, sessionID, newStepIndex, notes)
}

func (m *mockSessions) Pause(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.pauseFn(ctx, userID, sessionID)
}

func (m *mockSessions) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.resumeFn(ctx, userID, sessionID)
}

func (m *mockSessions) Complete(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.completeFn(ctx, userID, sessionID)
}

func (m *mockSessions) Abandon(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.abandonFn(ctx, userID, sessionID)
}

func (m *mockSessions) CompleteStep(ctx context.Context, userID, sessionID uuid.UUID, p session.CompleteStepParams) error {
	return m.completeStepFn(ctx, userID, sessionID, p)
}

func (m *mockSessions) StepCompletions(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.StepCompletion, error) {
	return m.stepCompletionsFn(ctx, userID, sessionID)
}

type mockTimers struct {
	createFn func(ctx context.Context, userID, sessionID uuid.UUID, p timer.CreateParams) (*store.CookingTimer, error)
	getFn    func(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	pauseFn  func(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	resumeFn func(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	doneFn   func(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	cancelFn func(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	listFn   func(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.CookingTimer, error)
}

func (m *mockTimers) Create(ctx context.Context, userID, sessionID uuid.UUID, p timer.CreateParams) (*store.CookingTimer, error) {
	return m.createFn(ctx, userID, sessionID, p)
}

func (m *mockTimers) Get(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return m.getFn(ctx, userID, timerID)
}

func (m *mockTimers) Pause(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return m.pauseFn(ctx, userID, timerID)
}

func (m *mockTimers) Resume(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return m.resumeFn(ctx, userID, timerID)
}

func (m *mockTimers) Complete(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return m.doneFn(ctx, userID, timerID)
}

func (m *mockTimers) Cancel(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return m.cancelFn(ctx, userID, timerID)
}

func (m *mockTimers) ListBySession(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.CookingTimer, error) {
	return m.listFn(ctx, userID, sessionID)
}

type mockRoomsService struct {
	createFn       func(ctx context.Context, creatorID uuid.UUID, p room.CreateParams) (*store.BodyDoublingRoom, error)
	joinFn         func(ctx context.Context, userID uuid.UUID, code string, password *string, sessionID *uuid.UUID, recipeName *string) (uuid.UUID, error)
	leaveFn        func(ctx context.Context, userID, roomID uuid.UUID) error
	activityFn     func(ctx context.Context, userID, roomID uuid.UUID, currentStep *string, energy *int) error
	getFn          func(ctx context.Context, userID, roomID uuid.UUID) (*store.BodyDoublingRoom, error)
	participantsFn func(ctx context.Context, userID, roomID uuid.UUID) ([]*store.Participant, error)
	listPublicFn   func(ctx context.Context, limit, offset int) ([]*store.BodyDoublingRoom, error)
	endFn          func(ctx context.Context, userID, roomID uuid.UUID) error
}

func (m *mockRoomsService) Create(ctx context.Context, creatorID uuid.UUID, p room.CreateParams) (*store.BodyDoublingRoom, error) {
	return m.createFn(ctx, creatorID, p)
}

func (m *mockRoomsService) JoinByCode(ctx context.Context, userID uuid.UUID, code string, password *string, sessionID *uuid.UUID, recipeName *string) (uuid.UUID, error) {
	return m.joinFn(ctx, userID, code, password, sessionID, recipeName)
}

func (m *mockRoomsService) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	return m.leaveFn(ctx, userID, roomID)
}

func (m *mockRoomsService) UpdateActivity(ctx context.Context, userID, roomID uuid.UUID, currentStep *string, energy *int) error {
	return m.activityFn(ctx, userID, roomID, currentStep, energy)
}

func (m *mockRoomsService) GetRoom(ctx context.Context, userID, roomID uuid.UUID) (*store.BodyDoublingRoom, error) {
	return m.getFn(ctx, userID, roomID)
}

func (m *mockRoomsService) Participants(ctx context.Context, userID, roomID uuid.UUID) ([]*store.Participant, error) {
	return m.participantsFn(ctx, userID, roomID)
}

func (m *mockRoomsService) ListPublic(ctx context.Context, limit, offset int) ([]*store.BodyDoublingRoom, error) {
	return m.listPublicFn(ctx, limit, offset)
}

func (m *mockRoomsService) End(ctx context.Context, userID, roomID uuid.UUID) error {
	return m.endFn(ctx, userID, roomID)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// authedRequest builds a request carrying an authenticated user.
func authedRequest(method, target string, body io.Reader, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, body)
	user := &store.User{ID: userID, Name: "tester", CreatedAt: time.Now()}
	return req.WithContext(middleware.NewContextWithUser(req.Context(), user))
}

func activeSession(userID uuid.UUID) *store.CookingSession {
	return &store.CookingSession{
		ID:               uuid.New(),
		UserID:           userID,
		RecipeID:         "recipe-1",
		BreakdownID:      uuid.New(),
		Status:           store.SessionStatusActive,
		CurrentStepIndex: 0,
		TotalSteps:       4,
		StartedAt:        time.Now().UTC(),
	}
}
