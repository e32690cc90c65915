package apiclient

// Result is what screens branch on: Success plus either Data or Message.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed result, preferring the backend's message over fallback.
func Fail[T any](err error, fallback string) Result[T] {
	return Result[T]{Success: false, Message: MessageOf(err, fallback)}
}
