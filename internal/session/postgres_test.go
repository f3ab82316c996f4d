package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into sessions").
		WithArgs("k1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPG(db)
	if err := store.Save(context.Background(), "k1", testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGLoadRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	record, err := json.Marshal(testSession())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.ExpectQuery("select record from sessions").
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(record))

	store := NewPG(db)
	got, ok, err := store.Load(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected session present")
	}
	if got.Identity.ID != "u1" || got.Token != "tok1" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestPGLoadAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select record from sessions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	store := NewPG(db)
	_, ok, err := store.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected empty load")
	}
}

func TestPGLoadCorruptRecordIsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select record from sessions").
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow([]byte(`{"identity":{"id":"u1"}}`)))

	store := NewPG(db)
	_, ok, err := store.Load(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected half-written record to read as empty")
	}
}

func TestPGUnreachableIsUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select record from sessions").
		WithArgs("k1").
		WillReturnError(errors.New("connection refused"))

	store := NewPG(db)
	_, _, err = store.Load(context.Background(), "k1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPGClear(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("delete from sessions").
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPG(db)
	if err := store.Clear(context.Background(), "k1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}
