package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"lendit/internal/app/uow"
)

const writeConflictCode = 112

// translate maps transaction aborts caused by concurrent writers to uow.ErrTransient.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return errors.Join(uow.ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(writeConflictCode)
	}
	return false
}
