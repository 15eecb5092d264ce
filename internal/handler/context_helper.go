package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/malla-api/internal/middleware"
	appErrors "github.com/noah-isme/malla-api/pkg/errors"
)

func sessionFromContext(c *gin.Context) (string, error) {
	id := middleware.SessionID(c)
	if id == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "session token is required")
	}
	return id, nil
}

func bindJSON(c *gin.Context, validate *validator.Validate, dest interface{}, message string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	if validate != nil {
		if err := validate.Struct(dest); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
		}
	}
	return nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return v, nil
}
