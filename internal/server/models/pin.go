package models

// PinKind tells how a stored PIN was persisted.
type PinKind int

const (
	PinNone PinKind = iota
	// PinHashed is a one-way hash produced by the credential hasher.
	PinHashed
	// PinPlaintextFallback is a PIN stored unhashed because the hasher was
	// unavailable. Accounts in this state are reported as degraded.
	PinPlaintextFallback
)

func (k PinKind) String() string {
	switch k {
	case PinHashed:
		return "hashed"
	case PinPlaintextFallback:
		return "plaintext_fallback"
	default:
		return "none"
	}
}

// PinSecret is the stored form of a quick-switch PIN. The zero value means
// no PIN is configured.
type PinSecret struct {
	kind  PinKind
	value string
}

func HashedPin(hash string) PinSecret {
	return PinSecret{kind: PinHashed, value: hash}
}

func PlaintextFallbackPin(pin string) PinSecret {
	return PinSecret{kind: PinPlaintextFallback, value: pin}
}

func (p PinSecret) Kind() PinKind  { return p.kind }
func (p PinSecret) Value() string  { return p.value }
func (p PinSecret) IsSet() bool    { return p.kind != PinNone }
func (p PinSecret) Degraded() bool { return p.kind == PinPlaintextFallback }

// PinFromColumns rebuilds a PinSecret from the nullable pin column and the
// degraded flag stored next to it.
func PinFromColumns(value *string, degraded bool) PinSecret {
	if value == nil || *value == "" {
		return PinSecret{}
	}
	if degraded {
		return PlaintextFallbackPin(*value)
	}
	return HashedPin(*value)
}
