package predicate

// Truth is a three-valued logic result. Unknown arises from missing operands.
type Truth int

const (
	Unknown Truth = iota
	False
	True
)

// Of converts a plain boolean
func Of(b bool) Truth {
	if b {
		return True
	}
	return False
}

func (t Truth) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// IsTrue reports whether t is True. Unknown selects nothing.
func (t Truth) IsTrue() bool {
	return t == True
}

// And: False dominates, then Unknown
func (t Truth) And(other Truth) Truth {
	switch {
	case t == False || other == False:
		return False
	case t == Unknown || other == Unknown:
		return Unknown
	default:
		return True
	}
}

// Or: True dominates, then Unknown
func (t Truth) Or(other Truth) Truth {
	switch {
	case t == True || other == True:
		return True
	case t == Unknown || other == Unknown:
		return Unknown
	default:
		return False
	}
}

// Xor is Unknown whenever either side is
func (t Truth) Xor(other Truth) Truth {
	if t == Unknown || other == Unknown {
		return Unknown
	}
	return Of(t != other)
}

// Not leaves Unknown unchanged
func (t Truth) Not() Truth {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}
