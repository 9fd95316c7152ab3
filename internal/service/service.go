// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the entity store
//
// Services take repository interfaces and a realtime.Broadcaster, never a
// concrete store or the websocket hub, so tests drive them with in-memory
// fakes and a recording broadcaster.
//
// WHAT A MUTATION LOOKS LIKE HERE:
// Every write that other users care about follows the same order:
//
//  1. validate the request shape, before touching storage
//  2. persist the new entity
//  3. link it into its parent's reference list (one atomic element add)
//  4. broadcast the domain update
//  5. fan out notifications (NotificationService.Notify)
//
// Failures in steps 1 to 3 abort the request. Failures in step 5 happen
// after the primary mutation committed; they are logged and counted but the
// caller still sees success. Broadcasts (step 4) cannot fail from the
// caller's point of view.
//
// ERRORS:
// Services return *apperror.AppError values carrying the exact message the
// client sees. Repository errors that are not classified pass through
// wrapped with the operation name; the handler reports those as 500.
package service

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/heapoverflow/internal/apperror"
)

// validate checks request DTO shape. A *validator.Validate caches struct
// metadata and is safe for concurrent use, so one instance serves every
// service.
var validate = validator.New(validator.WithRequiredStructEnabled())

// isNotFound reports whether err is (or wraps) a NotFound from the store.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

// errAttr is the log attribute every service uses for errors.
func errAttr(err error) slog.Attr {
	return slog.String("error", err.Error())
}
