package response

// AppError 处理器层错误，Code 为业务状态码
type AppError struct {
	Code    int
	Message string
	Detail  interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail 附带返回给客户端的结构化信息
func (e *AppError) WithDetail(detail interface{}) *AppError {
	e.Detail = detail
	return e
}
