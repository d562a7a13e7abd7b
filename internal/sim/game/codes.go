package game

import "fmt"

// ReturnCode is the status a world command reports.
type ReturnCode int

const (
	OK ReturnCode = iota
	ErrNotOwner
	ErrNoPath
	ErrNameExists
	ErrBusy
	ErrNotFound
	ErrNotEnough
	ErrInvalidTarget
	ErrFull
	ErrNotInRange
	ErrInvalidArgs
	ErrTired
	ErrNoBodyPart
	ErrRCLNotEnough
)

var codeNames = map[ReturnCode]string{
	OK:               "OK",
	ErrNotOwner:      "ERR_NOT_OWNER",
	ErrNoPath:        "ERR_NO_PATH",
	ErrNameExists:    "ERR_NAME_EXISTS",
	ErrBusy:          "ERR_BUSY",
	ErrNotFound:      "ERR_NOT_FOUND",
	ErrNotEnough:     "ERR_NOT_ENOUGH_RESOURCES",
	ErrInvalidTarget: "ERR_INVALID_TARGET",
	ErrFull:          "ERR_FULL",
	ErrNotInRange:    "ERR_NOT_IN_RANGE",
	ErrInvalidArgs:   "ERR_INVALID_ARGS",
	ErrTired:         "ERR_TIRED",
	ErrNoBodyPart:    "ERR_NO_BODYPART",
	ErrRCLNotEnough:  "ERR_RCL_NOT_ENOUGH",
}

func (c ReturnCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("RETURN_CODE(%d)", int(c))
}
