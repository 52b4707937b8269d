package errs

// ErrorKind identifies a kind of internal error.
// Wrap it with cockroachdb/errors and match it with errors.Is.
type ErrorKind string

const (
	// NotFound is returned when a requested item does not exist.
	NotFound = ErrorKind("Not Found")

	// InvalidArgument is returned when a caller passes a malformed value.
	InvalidArgument = ErrorKind("Invalid Argument")

	// Unsupported is returned for features or networks this build does not handle.
	Unsupported = ErrorKind("Unsupported")

	// ConflictSetting is returned when persisted state was written with different settings.
	ConflictSetting = ErrorKind("Conflict Setting")

	// Corrupted is returned when persisted state can't be decoded. Requires a reindex.
	Corrupted = ErrorKind("Corrupted")

	// ReorgTooDeep is returned when a reorg goes past the configured rollback depth.
	ReorgTooDeep = ErrorKind("Reorg Too Deep")

	Timeout            = ErrorKind("Timeout")
	Closed             = ErrorKind("Closed")
	InternalError      = ErrorKind("Internal Error")
	SomethingWentWrong = ErrorKind("Something Went Wrong")
	OverflowUint64     = ErrorKind("overflow uint64")
	OverflowUint128    = ErrorKind("overflow uint128")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
