package scan

type State string

const (
	StateIdle          State = "IDLE"
	StateScanning      State = "SCANNING"
	StateResolving     State = "RESOLVING"
	StateConfirming    State = "CONFIRMING"
	StateAlreadyInCart State = "ALREADY_IN_CART"
	StateNotFound      State = "NOT_FOUND"
)

// IsPendingDecision reports whether a scanned product waits for the player.
func (s State) IsPendingDecision() bool {
	return s == StateConfirming || s == StateAlreadyInCart
}

// CanStart reports whether a new scan session may begin from s.
func (s State) CanStart() bool {
	return s == StateIdle || s == StateNotFound
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}

type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageInfo    MessageKind = "info"
	MessageSuccess MessageKind = "success"
	MessageWarning MessageKind = "warning"
	MessageError   MessageKind = "error"
)

const (
	MsgScannerActive      = "Scanner aktiv. Halten Sie den QR-Code vor die Kamera."
	MsgScannerUnavailable = "Fehler beim Starten des Scanners. Bitte erlauben Sie den Kamerazugriff."
	MsgResolving          = "QR Code gefunden! Suche Produkt..."
	MsgNotFound           = "Produkt nicht gefunden. Bitte versuchen Sie es erneut."
	MsgLookupFailed       = "Fehler beim Laden des Produkts."
)
