package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a sentinel error with the HTTP status and message the
// API returns when a use case fails with it.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

func (cs ErrorCase) matches(err error) bool {
	return cs.Err != nil && errors.Is(err, cs.Err)
}

// RespondWithMappedError walks the cases in order and writes the first
// match. Unmapped errors get the fallback status and message.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.matches(err) {
			RespondError(c, cs.Status, cs.Message)
			return
		}
	}

	RespondError(c, fallbackStatus, fallbackMessage)
}
