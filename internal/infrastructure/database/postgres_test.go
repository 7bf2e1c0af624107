package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestPrepare(t *testing.T) {
	tests := []struct {
		name      string
		expect    func(mock sqlmock.Sqlmock)
		wantErr   bool
		wantClose bool
	}{
		{
			name: "ping and migrate",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectExec(`CREATE TABLE IF NOT EXISTS profiles`).WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "ping fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing().WillReturnError(errors.New("connection refused"))
				mock.ExpectClose()
			},
			wantErr:   true,
			wantClose: true,
		},
		{
			name: "migration fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectPing()
				mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
				mock.ExpectClose()
			},
			wantErr:   true,
			wantClose: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			db := sqlx.NewDb(raw, "postgres")
			tt.expect(mock)

			err = prepare(context.Background(), db)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantClose {
				mock.ExpectClose()
				db.Close()
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}
