package website

import (
	"net/http"

	"github.com/newsdesk-cms/newsdesk/src/oops"
)

var statusForKind = map[oops.Kind]int{
	oops.KindNotFound:     http.StatusNotFound,
	oops.KindForbidden:    http.StatusForbidden,
	oops.KindUnauthorized: http.StatusUnauthorized,
	oops.KindConflict:     http.StatusConflict,
	oops.KindInvalidState: http.StatusBadRequest,
	oops.KindInvalidInput: http.StatusBadRequest,
	oops.KindInternal:     http.StatusInternalServerError,
}

func StatusForError(err error) int {
	return statusForKind[oops.KindOf(err)]
}

type ErrorBody struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorBodyFor is what a client gets to see of err. Internal errors are
// reduced to a generic message; everything else is public by construction.
func ErrorBodyFor(err error) ErrorBody {
	kind := oops.KindOf(err)
	if kind == oops.KindInternal {
		return ErrorBody{Error: "server failure", Kind: kind.String()}
	}

	body := ErrorBody{Kind: kind.String(), Code: oops.CodeOf(err)}
	if e := outermost(err); e != nil {
		body.Error = e.Message
		body.Details = e.Details
	} else {
		body.Error = err.Error()
	}
	return body
}

// outermost finds the error that set the kind. Wrapping with oops.New keeps
// the kind but prepends context that is not meant for clients.
func outermost(err error) *oops.Error {
	for err != nil {
		e, ok := err.(*oops.Error)
		if ok && e.Wrapped == nil {
			return e
		}
		if ok {
			if inner, isOops := e.Wrapped.(*oops.Error); !isOops || inner.Kind != e.Kind {
				return e
			}
		}
		u, isWrapper := err.(interface{ Unwrap() error })
		if !isWrapper {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

/*
ErrorResponse turns err into a JSON error body with the matching status.
The error is attached to the response so the logging middleware can record
it; internal errors are logged in full, kinded ones at debug level.
*/
func (c *RequestContext) ErrorResponse(err error) ResponseData {
	res := c.JsonResponse(StatusForError(err), ErrorBodyFor(err))
	res.Errors = []error{err}
	return res
}

func FourOhFour(c *RequestContext) ResponseData {
	if c.MethodNotAllowed {
		return c.JsonResponse(http.StatusMethodNotAllowed, ErrorBody{
			Error: "method not allowed",
			Kind:  oops.KindInvalidInput.String(),
			Code:  "method_not_allowed",
		})
	}
	return c.JsonResponse(http.StatusNotFound, ErrorBody{
		Error: "no such endpoint",
		Kind:  oops.KindNotFound.String(),
		Code:  "not_found",
	})
}
