package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

// DuplicateProblem is the 409 body listing the conflicting entries.
type DuplicateProblem struct {
	httpx.ProblemDetail
	Conflicts []string `json:"conflicts"`
}

// RespondError renders err, expanding duplicate conflicts into their names.
func RespondError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		httpx.JSON(w, http.StatusConflict, DuplicateProblem{
			ProblemDetail: httpx.ProblemDetail{Title: "Duplicate", Status: http.StatusConflict, Detail: dup.Error()},
			Conflicts:     dup.Names,
		})
		return
	}
	if logger != nil {
		logger.Warn(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
