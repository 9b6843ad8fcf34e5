package dashboard

import (
	"errors"

	"github.com/user/thermaldash/internal/browse"
	"github.com/user/thermaldash/internal/parser"
)

// ErrIncompleteSelection means date, device or serial is still unselected.
var ErrIncompleteSelection = errors.New("selection incomplete")

// ErrorKind groups failures the way the operator sees them.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindIncomplete
	KindPathAccess
	KindFileNotFound
	KindData
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindIncomplete:
		return "incomplete"
	case KindPathAccess:
		return "path_access"
	case KindFileNotFound:
		return "file_not_found"
	case KindData:
		return "data_error"
	}
	return "internal"
}

// Classify maps an error from Analyze onto an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrIncompleteSelection):
		return KindIncomplete
	case errors.Is(err, browse.ErrFileNotFound):
		return KindFileNotFound
	case errors.Is(err, browse.ErrPathAccess):
		return KindPathAccess
	case errors.Is(err, parser.ErrData):
		return KindData
	}
	return KindInternal
}
