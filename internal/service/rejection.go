package service

import (
	"fmt"

	"github.com/prop-engine/internal/models"
)

// Rejection is the structured outcome of a failed rule check. It is
// recoverable for the caller: the trade is refused but, except for expiry
// detection and repeated-violation escalation, no account state changes.
type Rejection struct {
	Code    models.RuleCode    `json:"code"`
	Message string             `json:"message"`
	Hint    string             `json:"hint,omitempty"`
	Context map[string]float64 `json:"context,omitempty"`
}

// Error implements the error interface
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code models.RuleCode, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

func (r *Rejection) withHint(hint string) *Rejection {
	r.Hint = hint
	return r
}

func (r *Rejection) withContext(key string, value float64) *Rejection {
	if r.Context == nil {
		r.Context = make(map[string]float64)
	}
	r.Context[key] = value
	return r
}
