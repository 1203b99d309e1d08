package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
	"time"

	"shapeup/internal/apperr"
	"shapeup/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("error")

	code := m.Run()
	os.Exit(code)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, n *Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockRepository) ListForRecipient(ctx context.Context, recipientID string) ([]Notification, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Notification), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	args := m.Called(ctx, recipientID, id)
	return args.Bool(0), args.Error(1)
}

func TestQueue_Notify(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.Regexp().ExpectLPush(queueKey, `.*`).SetVal(3)

	NewQueue(db).Notify(context.Background(), "m-1", "Membership frozen", "Your membership is frozen.")
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestQueue_NotifySwallowsErrors(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.Regexp().ExpectLPush(queueKey, `.*`).SetErr(assert.AnError)

	q := NewQueue(db)
	assert.NotPanics(t, func() {
		q.Notify(context.Background(), "m-1", "Membership expired", "")
	})
	assert.Error(t, q.Enqueue(context.Background(), "m-1", "x", "y"))
}

func TestQueue_QueueLength(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectLLen(queueKey).SetVal(5)

	assert.Equal(t, int64(5), NewQueue(db).QueueLength(context.Background()))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func newTestWorker(t *testing.T) (*Worker, redismock.ClientMock, *MockRepository) {
	t.Helper()
	db, rmock := redismock.NewClientMock()
	repo := new(MockRepository)
	w := NewWorker(db, repo)
	w.pollTimeout = time.Second
	w.retryDelay = 0
	return w, rmock, repo
}

func payload(t *testing.T, job Job) string {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return string(data)
}

func TestWorker_Delivers(t *testing.T) {
	w, rmock, repo := newTestWorker(t)
	created := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	job := Job{ID: "n-1", RecipientID: "m-1", Name: "Membership activated", Description: "Your membership is now active.", Created: created}

	rmock.ExpectBRPop(time.Second, queueKey).SetVal([]string{queueKey, payload(t, job)})
	repo.On("Insert", mock.Anything, &Notification{
		ID:          "n-1",
		RecipientID: "m-1",
		Name:        "Membership activated",
		Description: "Your membership is now active.",
		CreatedAt:   created,
	}).Return(nil)

	w.processNext(context.Background())
	repo.AssertExpectations(t)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestWorker_RequeuesThenFails(t *testing.T) {
	w, rmock, repo := newTestWorker(t)
	job := Job{ID: "n-2", RecipientID: "admins", Name: "Renewal requested", Created: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	retried := job
	retried.Tries = 1
	rmock.ExpectBRPop(time.Second, queueKey).SetVal([]string{queueKey, payload(t, job)})
	rmock.ExpectLPush(queueKey, []byte(payload(t, retried))).SetVal(1)
	w.processNext(context.Background())

	exhausted := job
	exhausted.Tries = maxTries - 1
	rmock.ExpectBRPop(time.Second, queueKey).SetVal([]string{queueKey, payload(t, exhausted)})
	rmock.Regexp().ExpectLPush(failedKey, `.*`).SetVal(1)
	w.processNext(context.Background())

	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestWorker_EmptyQueueAndBadPayload(t *testing.T) {
	w, rmock, repo := newTestWorker(t)

	rmock.ExpectBRPop(time.Second, queueKey).RedisNil()
	w.processNext(context.Background())

	rmock.ExpectBRPop(time.Second, queueKey).SetVal([]string{queueKey, "{not json"})
	w.processNext(context.Background())

	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestWorker_StopsOnCancel(t *testing.T) {
	w, _, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRepository(t *testing.T) {
	sqlDB, smock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(sqlDB, "sqlmock")
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	smock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO NOTHING`)).
		WithArgs("n-1", "m-1", "Membership frozen", "desc", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	smock.ExpectQuery(regexp.QuoteMeta(`WHERE recipient_id = $1`)).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "name", "description", "read", "created_at"}).
			AddRow("n-1", "m-1", "Membership frozen", "desc", false, now))
	smock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET read = TRUE`)).
		WithArgs("n-1", "m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(ctx, &Notification{ID: "n-1", RecipientID: "m-1", Name: "Membership frozen", Description: "desc", CreatedAt: now}))

	notes, err := repo.ListForRecipient(ctx, "m-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].Read)

	ok, err := repo.MarkRead(ctx, "m-1", "n-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestInbox_MarkRead(t *testing.T) {
	repo := new(MockRepository)
	inbox := NewInbox(repo)

	repo.On("MarkRead", mock.Anything, "m-1", "n-1").Return(true, nil)
	repo.On("MarkRead", mock.Anything, "m-1", "n-2").Return(false, nil)
	repo.On("MarkRead", mock.Anything, "m-1", "n-3").Return(false, errors.New("timeout"))

	assert.NoError(t, inbox.MarkRead(context.Background(), "m-1", "n-1"))
	assert.True(t, apperr.IsNotFound(inbox.MarkRead(context.Background(), "m-1", "n-2")))
	assert.True(t, apperr.IsRetryable(inbox.MarkRead(context.Background(), "m-1", "n-3")))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(MockRepository)
	h := NewHandler(NewInbox(repo), "admins")

	r := gin.New()
	me := r.Group("/me", func(c *gin.Context) { c.Set("member_id", "m-1"); c.Next() })
	me.GET("/notifications", h.Mine)
	me.POST("/notifications/:id/read", h.MarkRead)
	r.GET("/admin/notifications", h.ForAdmins)

	repo.On("ListForRecipient", mock.Anything, "m-1").Return([]Notification{{ID: "n-1", RecipientID: "m-1"}}, nil)
	repo.On("ListForRecipient", mock.Anything, "admins").Return([]Notification{}, nil)
	repo.On("MarkRead", mock.Anything, "m-1", "n-9").Return(false, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/notifications", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"n-1"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/notifications", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/me/notifications/n-9/read", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	repo.AssertExpectations(t)
}

func TestHandler_MarkAdminRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(MockRepository)
	h := NewHandler(NewInbox(repo), AdminRecipient)

	r := gin.New()
	admin := r.Group("/admin", func(c *gin.Context) { c.Set("member_id", "admin-1"); c.Next() })
	admin.POST("/notifications/:id/read", h.MarkAdminRead)

	repo.On("MarkRead", mock.Anything, AdminRecipient, "n-1").Return(true, nil)
	repo.On("MarkRead", mock.Anything, AdminRecipient, "n-2").Return(false, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/notifications/n-1/read", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/notifications/n-2/read", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkRead", mock.Anything, "admin-1", mock.Anything)
}
