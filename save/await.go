package save

// Result is the outcome of an awaited asynchronous operation.
type Result struct {
	Record  Record
	Success bool
}

// AwaitLoad starts AsyncLoad and returns a channel that receives its single
// result. When the request is not accepted the channel receives a failed
// result right away.
//
// The completion is delivered on the owner goroutine, so the caller must not
// block that goroutine on the channel.
func AwaitLoad(s *Subsystem, t Type, slot string, force bool) <-chan Result {
	ch := make(chan Result, 1)
	if !s.AsyncLoad(t, slot, force, deliver(ch)) {
		ch <- Result{}
	}
	return ch
}

// AwaitSave starts AsyncSave and returns a channel that receives its single
// result. See AwaitLoad.
func AwaitSave(s *Subsystem, t Type, slot string) <-chan Result {
	ch := make(chan Result, 1)
	if !s.AsyncSave(t, slot, deliver(ch)) {
		ch <- Result{}
	}
	return ch
}

func deliver(ch chan<- Result) Callback {
	return func(rec Record, success bool) {
		select {
		case ch <- Result{Record: rec, Success: success}:
		default:
		}
	}
}
