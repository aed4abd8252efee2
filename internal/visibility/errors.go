package visibility

import "errors"

var (
	// ErrRecordNotFound means the record exists in neither identifier space.
	ErrRecordNotFound = errors.New("visibility: record not found")
	// ErrConfiguration means the directory is not set up for a decision:
	// the record's organization cannot be determined, no sharing rule exists
	// for the module, or the rule carries an unsupported share type.
	ErrConfiguration = errors.New("visibility: configuration error")
)
