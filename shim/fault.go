package shim

import "fmt"

// Fault is the non-recoverable condition raised when the host tool violates
// the binary contract, such as passing an operation code outside the defined
// set to initialize. The raw ABI has no slot for reporting it: the success
// channel of initialize is already occupied by construction-failure codes,
// so a Fault never returns through the normal path. The shim panics with a
// *Fault; on a bare-metal target build the panic aborts execution, which is
// the contract.
type Fault struct {
	Reason string
}

func (f *Fault) Error() string {
	return "fatal: " + f.Reason
}

func fault(format string, args ...any) {
	panic(&Fault{Reason: fmt.Sprintf(format, args...)})
}
