package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/lib/pq"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return conn, mock, func() { conn.Close() }
}

func TestUserList_Paged(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(conn, db.Postgres)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "avatar", "created_at"}).
			AddRow("u3", "Lan", "lan@example.com", "hash", nil, now))

	page, err := repo.List(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Total != 3 || page.TotalPages != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
	if page.Items[0].PasswordHash != "hash" || page.Items[0].Avatar != nil {
		t.Errorf("unexpected user: %+v", page.Items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserCreate_EmailTaken(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(conn, db.Postgres)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), models.User{ID: "u1", Name: "Lan", Email: "lan@example.com"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(conn, db.Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByEmail(context.Background(), "ghost@example.com"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAdminGetByUsername(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(conn, db.Postgres)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM admin_users WHERE username = $1`)).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "role", "created_at", "updated_at"}).
			AddRow("a1", "admin", "$2a$10$hash", "admin", now, now))

	a, err := repo.GetByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Role != models.RoleAdmin || a.PasswordHash != "$2a$10$hash" {
		t.Errorf("unexpected admin: %+v", a)
	}
}

func TestAdminUpdatePassword_NotFound(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(conn, db.Postgres)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE admin_users SET password = $1`)).
		WithArgs("newhash", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdatePassword(context.Background(), "ghost", "newhash"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestBadgeAssign_Idempotent(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBadgeRepository(conn, db.Postgres)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`)).
		WithArgs("u1", "b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_badges`)).
		WithArgs("u1", "ghost").
		WillReturnError(&pq.Error{Code: "23503"})

	if err := repo.Assign(context.Background(), "u1", "b1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := repo.Assign(context.Background(), "u1", "ghost"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestBadgeListForUser(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBadgeRepository(conn, db.Postgres)

	earned := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN user_badges ub ON b.id = ub.badge_id`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon", "description", "earned_at"}).
			AddRow("b1", "First week", "🔥", nil, earned))

	badges, err := repo.ListForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(badges) != 1 || badges[0].EarnedAt == nil || !badges[0].EarnedAt.Equal(earned) || badges[0].Description != nil {
		t.Errorf("unexpected badges: %+v", badges)
	}
}

func TestBookmarkReplace_Transaction(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookmarkRepository(conn, db.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookmarks WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookmarks`)).
		WithArgs("u1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookmarks`)).
		WithArgs("u1", "c2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Replace(context.Background(), "u1", []string{"c1", "c2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestBookmarkReplace_UnknownFlashcardRollsBack(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookmarkRepository(conn, db.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookmarks`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookmarks`)).
		WithArgs("u1", "ghost").
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "u1", []string{"ghost"})
	if !apperr.Is(err, apperr.KindReference) {
		t.Errorf("expected reference error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStreakGetAndSave(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(conn, db.Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT current, best, last_updated FROM streaks WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"current", "best", "last_updated"}).
			AddRow(4, 9, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (user_id) DO UPDATE SET`)).
		WithArgs("u1", 5, 9, "2026-10-17").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s, err := repo.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Current != 4 || s.Best != 9 || s.LastUpdated != "2026-10-16" {
		t.Errorf("unexpected streak: %+v", s)
	}

	if err := repo.Save(context.Background(), "u1", models.Streak{Current: 5, Best: 9, LastUpdated: "2026-10-17"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStreakGet_NotFound(t *testing.T) {
	conn, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(conn, db.Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM streaks`)).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"current", "best", "last_updated"}))

	if _, err := repo.Get(context.Background(), "u2"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
