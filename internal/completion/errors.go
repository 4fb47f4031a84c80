package completion

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a fatal completion error.
type ErrorCode string

const (
	// CodePlacement: a tag kind is not legal at its position.
	CodePlacement ErrorCode = "PLACEMENT"
	// CodeCollision: two kinds from one mutual-exclusion group share a position.
	CodeCollision ErrorCode = "COLLISION"
	// CodeCardinality: a method's parameter tag sets disagree with its descriptor.
	CodeCardinality ErrorCode = "CARDINALITY"
)

// MethodPosition is the Position value for the method/return position.
const MethodPosition = -1

// Error is a fatal completion error. The input is unsound for interop and
// the run must abort.
type Error struct {
	Code     ErrorCode
	Type     string
	Method   string   // name + descriptor
	Position int      // MethodPosition or a parameter index
	Tags     []string // offending tag kinds
	Detail   string
}

func (e *Error) Error() string {
	where := "return type/method"
	if e.Position != MethodPosition {
		where = fmt.Sprintf("parameter %d", e.Position)
	}
	method := e.Type + "." + e.Method

	switch e.Code {
	case CodePlacement:
		return fmt.Sprintf("%s: tag %s is not allowed on %s of %s", e.Code, strings.Join(e.Tags, ", "), where, method)
	case CodeCollision:
		return fmt.Sprintf("%s: tags [%s] can't be specified at the same time on %s of %s", e.Code, strings.Join(e.Tags, " "), where, method)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Code, method, e.Detail)
	}
}
