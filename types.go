package modelkit

// UnknownPolicy controls how unknown construction/update keys are handled.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Ignore unknown keys (default).
	UnknownStrict                      // Reject unknown keys with an error.
)

// Kind identifies the descriptor flavour of a Field.
type Kind int

const (
	KindGeneric Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBool
	KindDateTime
	KindDuration
	KindList
	KindSet
	KindDict
	KindEmbedded
)

var kindNames = [...]string{
	KindGeneric:  "Generic",
	KindString:   "String",
	KindInteger:  "Integer",
	KindFloat:    "Float",
	KindBool:     "Bool",
	KindDateTime: "DateTime",
	KindDuration: "Duration",
	KindList:     "List",
	KindSet:      "SetOf",
	KindDict:     "Dict",
	KindEmbedded: "Embedded",
}

// String returns the constructor name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// IsCollection reports whether the kind is List, SetOf or Dict.
func (k Kind) IsCollection() bool { return k == KindList || k == KindSet || k == KindDict }
