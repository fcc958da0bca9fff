package response

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/pkg/apperror"
)

const (
	StatusOK    = 1
	StatusError = 0
)

// ErrorBody is the client-facing shape of an *apperror.Error.
type ErrorBody struct {
	Type    apperror.Kind  `json:"type"`
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// Envelope builds {status: 1, msg?, ...payload}. The payload's JSON fields are
// spread into the envelope, so payload must encode to a JSON object (or be nil).
func Envelope(msg string, payload any) (gin.H, error) {
	out := gin.H{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
	}
	out["status"] = StatusOK
	if msg != "" {
		out["msg"] = msg
	}
	return out, nil
}

// Success writes a success envelope with the given HTTP status.
func Success(c *gin.Context, code int, msg string, payload any) {
	body, err := Envelope(msg, payload)
	if err != nil {
		Fail(c, apperror.New(apperror.InvalidProgramState, "response Error", "failed to encode response", nil))
		return
	}
	c.JSON(code, body)
}

// Fail renders err. Errors that are not *apperror.Error are reported as
// opaque server errors so internals never reach the client.
func Fail(c *gin.Context, err error) {
	body, code := ErrorPayload(err)
	c.AbortWithStatusJSON(code, gin.H{
		"status":     StatusError,
		"error":      body,
		"request_id": c.GetString("request_id"),
	})
}

// ErrorPayload maps err to its body and HTTP status.
func ErrorPayload(err error) (ErrorBody, int) {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return ErrorBody{Type: ae.Kind, Name: ae.Name, Message: ae.Message, Params: ae.Params}, ae.StatusCode()
	}
	k := apperror.DatabaseError
	return ErrorBody{Type: k, Name: "internal Error", Message: "unexpected error"}, k.StatusCode()
}
