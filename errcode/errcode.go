package errcode

// Code is a stable error identifier for core operations.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	NotInitialized Code = "not_initialized"
	InvalidArg     Code = "invalid_argument"

	// Initialization-time persistent-store failures. HWVersionMismatch is
	// fatal and triggers a forced restart; the others leave the facade in a
	// sticky refused state.
	HWVersionMismatch Code = "eeprom_hw_ver_mismatch"
	RprogInvalid      Code = "eeprom_rprog_invalid"
	SaveFailed        Code = "eeprom_save_failed"

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
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
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
