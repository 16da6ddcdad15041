package errors

type Exception struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     string `json:"error,omitempty"`
}

func (e *Exception) Error() string {
	return e.Message
}

type ExceptionOption func(*Exception)

func WithCode(code int) ExceptionOption {
	return func(e *Exception) {
		e.Code = code
	}
}

func WithMessage(message string) ExceptionOption {
	return func(e *Exception) {
		e.Message = message
	}
}

func WithError(err error) ExceptionOption {
	return func(e *Exception) {
		e.Err = err.Error()
	}
}

func NotFound(opts ...ExceptionOption) *Exception {
	defaultOpts := []ExceptionOption{
		WithCode(404),
		WithMessage("no entities found with given parameters"),
	}
	return newException(append(defaultOpts, opts...)...)
}

func BadRequest(opts ...ExceptionOption) *Exception {
	defaultOpts := []ExceptionOption{
		WithCode(400),
		WithMessage("bad request"),
	}
	return newException(append(defaultOpts, opts...)...)
}

func Conflict(opts ...ExceptionOption) *Exception {
	defaultOpts := []ExceptionOption{
		WithCode(409),
		WithMessage("conflict"),
	}
	return newException(append(defaultOpts, opts...)...)
}

func Unexpected(opts ...ExceptionOption) *Exception {
	defaultOpts := []ExceptionOption{
		WithCode(500),
		WithMessage("internal server error"),
	}
	return newException(append(defaultOpts, opts...)...)
}

func newException(opts ...ExceptionOption) *Exception {
	e := &Exception{
		Code:    500,
		Message: "internal server error",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
