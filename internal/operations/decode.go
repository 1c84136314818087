package operations

import "bytes"

// Operation is a command of the row protocol.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationCreate
	OperationInsert
	OperationUpdate
	OperationDelete
	OperationClear
	OperationRead
)

var operationNames = map[string]Operation{
	"CREATE": OperationCreate,
	"INSERT": OperationInsert,
	"UPDATE": OperationUpdate,
	"DELETE": OperationDelete,
	"CLEAR":  OperationClear,
	"READ":   OperationRead,
}

// Decode splits a command line into its operation and the remaining query bytes.
func Decode(buf []byte) (Operation, []byte) {
	buf = bytes.TrimSpace(buf)
	verb, rest, _ := bytes.Cut(buf, []byte(" "))

	op, ok := operationNames[string(bytes.ToUpper(verb))]
	if !ok {
		return OperationUnknown, nil
	}
	return op, bytes.TrimSpace(rest)
}
