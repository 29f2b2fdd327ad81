package exports

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertExport = `(?s)^INSERT\s+INTO\s+exports\s*\(id,\s*user_id,\s*storage_key,\s*entry_count,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`

var (
	at  = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	exp = &models.Export{ID: "x1", UserID: "u1", StorageKey: "users/u1/exports/2024/05/06/x1.json", EntryCount: 3, CreatedAt: at}
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertExport).
		WithArgs("x1", "u1", exp.StorageKey, 3, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), exp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(sqlmock.Sqlmock)
		want  string
	}{
		{
			name: "db error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insertExport).WillReturnError(errors.New("db down"))
			},
			want: `db error: .*db down`,
		},
		{
			name: "rows affected error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insertExport).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
			},
			want: `rows affected error: .*rows-err`,
		},
		{
			name: "unexpected rows affected",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insertExport).WillReturnResult(sqlmock.NewResult(0, 2))
			},
			want: `unexpected rows affected: 2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()
			tt.setup(mock)

			err := repo.Create(context.Background(), exp)
			if err == nil || !regexp.MustCompile(tt.want).MatchString(err.Error()) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+exports\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$2$`
	rows := sqlmock.NewRows([]string{"id", "user_id", "storage_key", "entry_count", "created_at"}).
		AddRow("x2", "u1", "k2", 5, at.Add(time.Hour)).
		AddRow("x1", "u1", "k1", 3, at)
	mock.ExpectQuery(q).WithArgs("u1", 20).WillReturnRows(rows)
	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))

	got, err := repo.ListByUser(context.Background(), "u1", 20)
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "x2" || got[1].EntryCount != 3 {
		t.Fatalf("unexpected list: %+v", got)
	}

	if _, err := repo.ListByUser(context.Background(), "u1", 20); err == nil || !regexp.MustCompile(`failed to select exports: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected select error, got %v", err)
	}
}
