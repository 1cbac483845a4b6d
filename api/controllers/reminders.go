package controllers

import (
	"context"
	"net/http"

	"github.com/luhive/luhive-backend/api/responses"
	"github.com/luhive/luhive-backend/internal/reminders"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
)

// ReminderRunner runs one enqueue-and-send pass.
type ReminderRunner interface {
	Run(ctx context.Context) (reminders.DispatchResult, error)
}

// ProcessReminders runs a dispatch pass on demand. The pass outlives a
// dropped client connection so claimed rows are always marked sent.
func ProcessReminders(runner ReminderRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reminder dispatcher"))
			return
		}
		result, err := runner.Run(context.WithoutCancel(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dispatch reminders"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}
