package upstream

import (
	"fmt"

	"emperror.dev/errors"
)

type ErrorKind string

const (
	// KindNetwork: the request never produced a response.
	KindNetwork ErrorKind = "network"
	// KindParse: the body was not valid JSON for the expected type.
	KindParse ErrorKind = "parse"
	// KindShape: JSON decoded but a required field such as countryInfo is missing.
	KindShape ErrorKind = "shape"
	// KindStatus: upstream answered with a non-2xx status.
	KindStatus  ErrorKind = "status"
	KindUnknown ErrorKind = "unknown"
)

// Error 描述一次上游请求失败，Kind 供界面区分错误类型
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("upstream %s failure on %s", e.Kind, e.Endpoint)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var upstreamErr *Error
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Kind
	}
	return KindUnknown
}

// apiError 是上游非 2xx 时返回的 JSON，例如 {"message":"Country not found ..."}
type apiError struct {
	Message string `json:"message"`
}
