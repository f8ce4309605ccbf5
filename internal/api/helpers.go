package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

func writeBadRequest(c *echo.Context, err error) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), invalidParam(err), "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, newInvalidRequest("", "request body is empty")
		}
		return out, newInvalidRequest("", "invalid JSON body: "+err.Error())
	}
	return out, nil
}

// tokensOf accepts a whitespace-separated string or a JSON array of strings.
func tokensOf(param string, v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, raw := range t {
			s, ok := raw.(string)
			if !ok {
				return nil, newInvalidRequest(param, fmt.Sprintf("%s[%d] must be a string", param, i))
			}
			out = append(out, strings.Fields(s)...)
		}
		return out, nil
	default:
		return nil, newInvalidRequest(param, param+" must be a string or an array of strings")
	}
}

func newResponseID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
