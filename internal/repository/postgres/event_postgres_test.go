package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/model"
	"preflight/internal/repository"
)

var eventRowColumns = []string{"action_id", "document_id", "action_type", "actor_role", "idempotency_key", "payload", "created_at"}

func TestEventPostgres_Append(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ev := &model.ActionEvent{
		DocumentID:     "D1",
		ActionType:     model.ActionOverrideRed,
		ActorRole:      model.RoleAdmin,
		IdempotencyKey: "k1",
		CreatedAt:      at,
	}

	const qFind = "SELECT (.+) FROM action_events WHERE document_id = \\$1 AND action_type = \\$2 AND idempotency_key = \\$3"
	const qCount = "SELECT COUNT\\(\\*\\) FROM action_events WHERE document_id = \\$1"

	t.Run("inserted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock\\(hashtext\\(\\$1\\)\\)").
			WithArgs("D1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(qFind).
			WithArgs("D1", "override_red", "k1").
			WillReturnRows(sqlmock.NewRows(eventRowColumns))
		mock.ExpectQuery(qCount).
			WithArgs("D1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO action_events (.+) ON CONFLICT \\(document_id, action_type, idempotency_key\\) DO NOTHING").
			WithArgs("D1", "override_red", "admin", "k1", "{}", at).
			WillReturnRows(sqlmock.NewRows([]string{"action_id", "created_at"}).AddRow(int64(7), at))
		mock.ExpectCommit()

		got, inserted, err := NewEventPostgres(db).Append(ctx, ev, 2)

		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, int64(7), got.ActionID)
		assert.JSONEq(t, `{}`, string(got.Payload))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stored key returns original before the length check", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs("D1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(qFind).
			WithArgs("D1", "override_red", "k1").
			WillReturnRows(sqlmock.NewRows(eventRowColumns).AddRow(int64(3), "D1", "override_red", "admin", "k1", []byte(`{"reason":"first"}`), at))
		mock.ExpectRollback()

		got, inserted, err := NewEventPostgres(db).Append(ctx, ev, 0)

		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, int64(3), got.ActionID)
		assert.JSONEq(t, `{"reason":"first"}`, string(got.Payload))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale ledger is not written", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs("D1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(qFind).WithArgs("D1", "override_red", "k1").WillReturnRows(sqlmock.NewRows(eventRowColumns))
		mock.ExpectQuery(qCount).WithArgs("D1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectRollback()

		got, inserted, err := NewEventPostgres(db).Append(ctx, ev, 2)

		assert.ErrorIs(t, err, repository.ErrStaleLedger)
		assert.False(t, inserted)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert conflict falls back to the stored event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs("D1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(qFind).WithArgs("D1", "override_red", "k1").WillReturnRows(sqlmock.NewRows(eventRowColumns))
		mock.ExpectQuery("INSERT INTO action_events").
			WillReturnRows(sqlmock.NewRows([]string{"action_id", "created_at"}))
		mock.ExpectQuery(qFind).
			WithArgs("D1", "override_red", "k1").
			WillReturnRows(sqlmock.NewRows(eventRowColumns).AddRow(int64(3), "D1", "override_red", "admin", "k1", []byte(`{}`), at))
		mock.ExpectRollback()

		got, inserted, err := NewEventPostgres(db).Append(ctx, ev, repository.AnyLength)

		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, int64(3), got.ActionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs("D1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(qFind).WithArgs("D1", "override_red", "k1").WillReturnRows(sqlmock.NewRows(eventRowColumns))
		mock.ExpectQuery("INSERT INTO action_events").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		got, inserted, err := NewEventPostgres(db).Append(ctx, ev, repository.AnyLength)

		assert.ErrorContains(t, err, "insert event: disk full")
		assert.False(t, inserted)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventPostgres_Reads(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEventPostgres(db)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("history oldest first", func(t *testing.T) {
		rows := sqlmock.NewRows(eventRowColumns).
			AddRow(int64(1), "D1", "escalate_ocr", "analyst", "k1", []byte(`{}`), at).
			AddRow(int64(2), "D1", "reconstruction_complete", "verifier", "k2", []byte(`{}`), at)
		mock.ExpectQuery("SELECT (.+) FROM action_events WHERE document_id = \\$1 ORDER BY created_at ASC, action_id ASC").
			WithArgs("D1").
			WillReturnRows(rows)

		items, err := repo.History(ctx, "D1")

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, model.ActionEscalateOCR, items[0].ActionType)
		assert.Equal(t, model.RoleVerifier, items[1].ActorRole)
	})

	t.Run("latest of empty ledger is nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM action_events WHERE document_id = \\$1 ORDER BY created_at DESC").
			WithArgs("D2").
			WillReturnRows(sqlmock.NewRows(eventRowColumns))

		ev, err := repo.Latest(ctx, "D2")

		assert.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("find by key miss is nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM action_events WHERE document_id = \\$1 AND action_type").
			WithArgs("D1", "accept_risk", "nope").
			WillReturnRows(sqlmock.NewRows(eventRowColumns))

		ev, err := repo.FindByKey(ctx, "D1", model.ActionAcceptRisk, "nope")

		assert.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("count", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM action_events WHERE document_id = \\$1").
			WithArgs("D1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		n, err := repo.Count(ctx, "D1")

		assert.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1").
		WithArgs("D1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns).AddRow("D1", "", "", at, at))
	mock.ExpectQuery("SELECT (.+) FROM findings WHERE document_id = \\$1").
		WithArgs("D1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "section", "code", "status", "detail", "flagged_at", "updated_at"}).
			AddRow("f1", "D1", "opportunity_spine", "OPP_CONTRACT_TYPE", "open", "", at, at))
	mock.ExpectQuery("SELECT (.+) FROM action_events WHERE document_id = \\$1").
		WithArgs("D1").
		WillReturnRows(sqlmock.NewRows(eventRowColumns).AddRow(int64(1), "D1", "override_red", "admin", "k1", []byte(`{}`), at))
	mock.ExpectCommit()

	snap, err := NewSnapshotPostgres(db).Snapshot(context.Background(), "D1")

	require.NoError(t, err)
	assert.Equal(t, "D1", snap.Document.ID)
	assert.Len(t, snap.Findings, 1)
	assert.Len(t, snap.History, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
