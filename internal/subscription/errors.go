package subscription

import "fmt"

// codedError implements hub.CodedError so the Hub can surface a stable
// error_code to the client without importing this package.
type codedError struct {
	code string
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() string  { return e.code }

func errDuplicate(symbol string) error {
	return codedError{code: "duplicate_subscription", msg: fmt.Sprintf("already subscribed to %s", symbol)}
}

func errNotConnected() error {
	return codedError{code: "not_connected", msg: "upstream session is not ready"}
}
