package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound covers unknown ids and rows hidden from the caller.
	ErrNotFound = errors.New("not found")
	// ErrConstraint covers duplicate unique fields and foreign-key misses.
	ErrConstraint = errors.New("constraint violation")
	// ErrUnavailable covers connectivity failures; the caller may retry.
	ErrUnavailable = errors.New("storage unavailable")
)

const (
	mysqlDupEntry  = 1062
	mysqlNoRefRow  = 1452
	mysqlNoRefRow2 = 1216
)

// mapErr folds driver errors onto the package taxonomy. Callers wrap the
// result with operation context.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%w: %s", ErrConstraint, me.Message)
		case mysqlNoRefRow, mysqlNoRefRow2:
			return fmt.Errorf("%w: %s", ErrConstraint, me.Message)
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// IsDuplicate reports whether err is a unique-key violation.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry
	}
	return errors.Is(err, ErrConstraint)
}
