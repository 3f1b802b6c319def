package errcode

// Code is a stable, kernel-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"

	// Region allocation and growth.
	CapacityExhausted          Code = "capacity_exhausted"
	TableFull                  Code = "table_full"
	NoActiveAppRegion          Code = "no_active_app_region"
	MisalignedBookkeeping      Code = "misaligned_bookkeeping"
	GrowthExceedsKernelReserve Code = "growth_exceeds_kernel_reserve"

	// Hardware inconsistency; callers treat it as fatal.
	UnknownRegionCountEncoding Code = "unknown_region_count_encoding"

	// Process-facing result of a failed grow request.
	OutOfMemory Code = "out_of_memory"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Fatal reports whether the code describes a hardware or firmware
// inconsistency rather than a resource shortage.
func Fatal(c Code) bool {
	switch c {
	case UnknownRegionCountEncoding, MisalignedBookkeeping:
		return true
	}
	return false
}
