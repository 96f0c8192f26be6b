// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"errors"

	"dreamcore/internal/models"
	"dreamcore/internal/repository"
)

// storeErr translates repository errors into API errors. Errors that already
// carry an application code pass through untouched.
func storeErr(err error, resource string, id uint) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if repository.IsNotFound(err) {
		return models.NewNotFoundError(resource, id)
	}
	if repository.IsUniqueViolation(err) {
		return models.NewConflictError("Resource already exists", err)
	}
	if repository.IsTransient(err) {
		return models.NewTransientError(err)
	}
	return err
}

// assertOwner is the single ownership check for destructive operations.
func assertOwner(ownerID, userID uint, message string) error {
	if ownerID != userID {
		return models.NewForbiddenError(message)
	}
	return nil
}
