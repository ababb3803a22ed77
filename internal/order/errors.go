package order

// codedError implements hub.CodedError so the Hub can surface a stable
// error_code to the client without importing this package.
type codedError struct {
	code string
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() string  { return e.code }

func errNotConnected() error {
	return codedError{code: "not_connected", msg: "upstream session is not ready"}
}

func errNotFound() error {
	return codedError{code: "not_found", msg: "order not found"}
}

func errNotOwned() error {
	return codedError{code: "not_owned", msg: "order belongs to a different client"}
}

func errTerminal() error {
	return codedError{code: "terminal", msg: "order is already in a terminal state"}
}
