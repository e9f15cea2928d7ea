package ports

import (
	"net/http"

	"github.com/99minutos/user-management/internal/core/domain"
)

// Outcome is the envelope every Account Service operation returns. Expected
// failures (not found, bad credentials, store errors) are reported through
// StatusCode instead of Go errors.
type Outcome struct {
	StatusCode     int            `json:"statusCode"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
	Token          string         `json:"token,omitempty"`
	Role           domain.Role    `json:"role,omitempty"`
	ExpirationTime string         `json:"expirationTime,omitempty"`
	User           *domain.User   `json:"user,omitempty"`
	UserList       []*domain.User `json:"userList,omitempty"`
}

// OK builds a 200 envelope.
func OK(message string) Outcome {
	return Outcome{StatusCode: http.StatusOK, Message: message}
}

// Fail builds a failed envelope. err may be nil when message alone explains it.
func Fail(code int, message string, err error) Outcome {
	o := Outcome{StatusCode: code, Message: message}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

func (o Outcome) WithUser(u *domain.User) Outcome {
	o.User = u
	return o
}

func (o Outcome) WithUsers(users []*domain.User) Outcome {
	o.UserList = users
	return o
}

// Succeeded reports whether the envelope carries a 200 status.
func (o Outcome) Succeeded() bool {
	return o.StatusCode == http.StatusOK
}
