package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/labmanager-service/internal/domain"
)

var personRowColumns = []string{"id", "first_name", "last_name", "email", "created_at", "updated_at"}

func TestPgPersonRepository_Create(t *testing.T) {
	t.Run("fills id and timestamps", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		now := time.Now().UTC()

		mock.ExpectQuery(`INSERT INTO persons \(first_name, last_name, email\)`).
			WithArgs("Ada", "Lovelace", "ada@example.org").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

		person := &domain.Person{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org"}
		require.NoError(t, repo.Create(context.Background(), person))
		assert.Equal(t, 7, person.ID)
		assert.False(t, person.IsTransient())
		assert.Equal(t, now, person.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty last name", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		err = repo.Create(context.Background(), &domain.Person{FirstName: "Ada", LastName: "  "})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		mock.ExpectQuery(`INSERT INTO persons`).
			WithArgs("Ada", "Lovelace", "").
			WillReturnError(errors.New("connection reset"))

		err = repo.Create(context.Background(), &domain.Person{FirstName: "Ada", LastName: "Lovelace"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create person")
	})
}

func TestPgPersonRepository_GetByID(t *testing.T) {
	t.Run("returns person", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT .+ FROM persons WHERE id = \$1`).
			WithArgs(3).
			WillReturnRows(pgxmock.NewRows(personRowColumns).AddRow(3, "Grace", "Hopper", "", now, now))

		person, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Grace Hopper", person.FullName())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		mock.ExpectQuery(`SELECT .+ FROM persons WHERE id = \$1`).
			WithArgs(99).
			WillReturnError(pgx.ErrNoRows)

		person, err := repo.GetByID(context.Background(), 99)
		assert.Nil(t, person)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		var nfErr *domain.NotFoundError
		require.True(t, errors.As(err, &nfErr))
		assert.Equal(t, "person", nfErr.Entity)
		assert.Equal(t, "99", nfErr.ID)
	})
}

func TestPgPersonRepository_Update(t *testing.T) {
	t.Run("updates names and email", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		now := time.Now().UTC()

		mock.ExpectQuery(`UPDATE persons SET first_name = \$2, last_name = \$3, email = \$4`).
			WithArgs(5, "Alan", "Turing", "alan@example.org").
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

		person := &domain.Person{ID: 5, FirstName: "Alan", LastName: "Turing", Email: "alan@example.org"}
		require.NoError(t, repo.Update(context.Background(), person))
		assert.Equal(t, now, person.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		mock.ExpectQuery(`UPDATE persons`).
			WithArgs(5, "Alan", "Turing", "").
			WillReturnError(pgx.ErrNoRows)

		err = repo.Update(context.Background(), &domain.Person{ID: 5, FirstName: "Alan", LastName: "Turing"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestPgPersonRepository_Delete(t *testing.T) {
	t.Run("deletes existing person", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		mock.ExpectExec(`DELETE FROM persons WHERE id = \$1`).
			WithArgs(4).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(context.Background(), 4))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when nothing was deleted", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPersonRepository(mock)
		mock.ExpectExec(`DELETE FROM persons WHERE id = \$1`).
			WithArgs(4).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err = repo.Delete(context.Background(), 4)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestPgPersonRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPersonRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM persons ORDER BY id`).
		WillReturnRows(pgxmock.NewRows(personRowColumns).
			AddRow(1, "Ada", "Lovelace", "", now, now).
			AddRow(2, "Grace", "Hopper", "", now, now))

	persons, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, 1, persons[0].ID)
	assert.Equal(t, 2, persons[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPersonRepository_List_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPersonRepository(mock)
	mock.ExpectQuery(`SELECT .+ FROM persons ORDER BY id`).
		WillReturnRows(pgxmock.NewRows(personRowColumns))

	persons, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, persons)
	assert.Empty(t, persons)
}

func TestPgPersonRepository_FindByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPersonRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM persons WHERE first_name = \$1 AND last_name = \$2 ORDER BY id`).
		WithArgs("John", "Smith").
		WillReturnRows(pgxmock.NewRows(personRowColumns).
			AddRow(2, "John", "Smith", "", now, now).
			AddRow(9, "John", "Smith", "", now, now))

	persons, err := repo.FindByName(context.Background(), "John", "Smith")
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, 2, persons[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
