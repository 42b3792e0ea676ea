package transport

// Envelope is the application body every endpoint answers with:
// {success, data?, message?}.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports a successful envelope that carries data.
func (e Envelope[T]) OK() bool {
	return e.Success && e.Data != nil
}
