package rpcontract

import "fmt"

// WriteOperationKind labels a proxy change notification.
//
//   - Persist is reported after a proxy created on the client has been
//     persisted on the server.
//   - Update is reported whenever a client sees a proxy for the first time,
//     or sees a proxy whose version has changed.
//   - Delete is reported after a proxy deleted on the client has been
//     deleted on the server as well.
//
// The wire form of a kind is its Tag, never the Go identifier, so encoded
// events stay stable if the constants are renamed.
type WriteOperationKind int

const (
	Persist WriteOperationKind = iota + 1
	Update
	Delete
)

var writeOperationTags = map[WriteOperationKind]string{
	Persist: "PERSIST",
	Update:  "UPDATE",
	Delete:  "DELETE",
}

// WriteOperations lists every kind in declaration order.
func WriteOperations() []WriteOperationKind {
	return []WriteOperationKind{Persist, Update, Delete}
}

// Tag returns one of "PERSIST", "UPDATE", or "DELETE".
// It returns the empty string for values outside the closed set.
func (k WriteOperationKind) Tag() string {
	return writeOperationTags[k]
}

func (k WriteOperationKind) String() string {
	if tag, ok := writeOperationTags[k]; ok {
		return tag
	}
	return fmt.Sprintf("WriteOperationKind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k WriteOperationKind) Valid() bool {
	_, ok := writeOperationTags[k]
	return ok
}

// ParseWriteOperation returns the kind carrying tag.
func ParseWriteOperation(tag string) (WriteOperationKind, error) {
	for k, t := range writeOperationTags {
		if t == tag {
			return k, nil
		}
	}
	return 0, Errorf(CodeInvalidArgument, "unknown write operation %q", tag)
}

// MarshalText implements encoding.TextMarshaler.
func (k WriteOperationKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, Errorf(CodeInvalidArgument, "invalid write operation %d", int(k))
	}
	return []byte(k.Tag()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *WriteOperationKind) UnmarshalText(text []byte) error {
	parsed, err := ParseWriteOperation(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
