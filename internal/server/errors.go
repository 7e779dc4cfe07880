package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ytget/yt-web/internal/artifact"
	"github.com/ytget/yt-web/internal/cookies"
	"github.com/ytget/yt-web/internal/download"
	"github.com/ytget/yt-web/internal/extract"
	"github.com/ytget/yt-web/internal/model"
	"github.com/ytget/yt-web/internal/platform"
)

// internalErrorMessage replaces messages of unexpected failures
const internalErrorMessage = "internal server error"

var errForbidden = errors.New("forbidden")

type errorResponse struct {
	Error string `json:"error"`
}

// requestError is a malformed or incomplete request
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// statusFor maps a component error to its HTTP status
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, extract.ErrURLRequired),
		errors.Is(err, download.ErrURLRequired),
		errors.Is(err, download.ErrFormatRequired),
		errors.Is(err, model.ErrInvalidURL),
		errors.Is(err, cookies.ErrEmptyBlob),
		errors.Is(err, platform.ErrNotPlaylist),
		errors.Is(err, platform.ErrEmptyPlaylistID):
		return http.StatusBadRequest
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, artifact.ErrNotFound),
		errors.Is(err, download.ErrTaskNotFound),
		errors.Is(err, cookies.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, download.ErrTaskNotActive):
		return http.StatusConflict
	case errors.Is(err, download.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Tool failures keep the tool's
// message; other server-side failures are logged and reported generically.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()

	if status == http.StatusInternalServerError {
		var extractErr *extract.Error
		var fetchErr *download.FetchError
		switch {
		case errors.As(err, &extractErr):
			msg = extractErr.Message
		case errors.As(err, &fetchErr):
			msg = fetchErr.Message
		default:
			s.logger.Error("request failed", "path", c.FullPath(), "error", err)
			msg = internalErrorMessage
		}
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
