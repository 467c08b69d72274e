package deadletter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doccompare/features/deadletter"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, queue string, body []byte, cause string) error {
	args := m.Called(ctx, queue, body, cause)
	return args.Error(0)
}

func (m *MockRepo) List(ctx context.Context) ([]deadletter.DeadLetter, error) {
	args := m.Called(ctx)
	return args.Get(0).([]deadletter.DeadLetter), args.Error(1)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestPostgresRepo_Save(t *testing.T) {
	db, dbmock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := deadletter.NewPostgresRepo(db)

	body := []byte("{not valid json")
	dbmock.ExpectExec(regexp.QuoteMeta("INSERT INTO dead_letters (queue, body, error) VALUES ($1, $2, $3)")).
		WithArgs("page.chunked", string(body), "invalid payload").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.Save(context.Background(), "page.chunked", body, "invalid payload"))
	assert.NoError(t, dbmock.ExpectationsWereMet())
}

func TestPostgresRepo_List(t *testing.T) {
	db, dbmock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := deadletter.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"id", "queue", "body", "error", "created_at"}).
		AddRow("1", "page.chunked", "{bad", "invalid payload", time.Now())

	dbmock.ExpectQuery("SELECT id, queue, body, error, created_at FROM dead_letters").
		WillReturnRows(rows)

	letters, err := repo.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, letters, 1)
	assert.Equal(t, "page.chunked", letters[0].Queue)
	assert.Equal(t, "{bad", letters[0].Body)
}

func TestHandler_List(t *testing.T) {
	t.Run("ReturnsLetters", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything).Return([]deadletter.DeadLetter{
			{ID: "1", Queue: "page.chunked", Body: "{bad", Error: "invalid payload"},
		}, nil)

		req := httptest.NewRequest("GET", "/deadletters", nil)
		w := httptest.NewRecorder()
		deadletter.NewHandler(repo).List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "page.chunked")
	})

	t.Run("EmptyReturnsArray", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything).Return([]deadletter.DeadLetter(nil), nil)

		req := httptest.NewRequest("GET", "/deadletters", nil)
		w := httptest.NewRecorder()
		deadletter.NewHandler(repo).List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything).Return([]deadletter.DeadLetter(nil), errors.New("db down"))

		req := httptest.NewRequest("GET", "/deadletters", nil)
		w := httptest.NewRecorder()
		deadletter.NewHandler(repo).List(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
