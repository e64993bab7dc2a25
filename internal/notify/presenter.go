package notify

// Severity is the visual weight of a presentation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Display is how a presentation is shown.
type Display string

const (
	DisplayToast       Display = "toast"
	DisplayStickyToast Display = "sticky-toast"
	DisplayModal       Display = "modal"
)

// Presentation is a notification ready for a station to render.
type Presentation struct {
	Type        string
	Severity    Severity
	Display     Display
	Title       string
	Message     string
	Details     []string
	Blocking    bool
	Dismissible bool
}

var titles = map[string]string{
	TypeInfo:         "Information",
	TypeSuccess:      "Success",
	TypeWarning:      "Warning",
	TypeError:        "Error",
	TypeConfirmation: "Confirmation",
	TypeSystem:       "System",
}

// Present maps a backend notification to its presentation.
func Present(n Notification) Presentation {
	t := n.NormalizedType()
	p := Presentation{
		Type:        t,
		Title:       titles[t],
		Message:     n.Message,
		Details:     append([]string(nil), n.Details...),
		Display:     DisplayToast,
		Dismissible: true,
	}
	switch t {
	case TypeSuccess:
		p.Severity = SeveritySuccess
	case TypeWarning:
		p.Severity = SeverityWarning
	case TypeError:
		p.Severity = SeverityError
	case TypeSystem:
		p.Severity = SeverityError
		p.Display = DisplayStickyToast
		p.Dismissible = false
	case TypeConfirmation:
		p.Severity = SeverityWarning
		p.Display = DisplayModal
		p.Blocking = true
		p.Dismissible = false
	default:
		p.Severity = SeverityInfo
	}
	return p
}

// PresentAll maps notifications in order.
func PresentAll(notifications []Notification) []Presentation {
	out := make([]Presentation, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, Present(n))
	}
	return out
}

// Toast builds a presentation for a station-generated message.
func Toast(t, message string) Presentation {
	return Present(Notification{Type: t, Message: message})
}

// Info, Success, Warning, Error and System are shorthands for Toast.
func Info(message string) Presentation    { return Toast(TypeInfo, message) }
func Success(message string) Presentation { return Toast(TypeSuccess, message) }
func Warning(message string) Presentation { return Toast(TypeWarning, message) }
func Error(message string) Presentation   { return Toast(TypeError, message) }
func System(message string) Presentation  { return Toast(TypeSystem, message) }

// Modal builds a blocking acknowledgment or confirmation dialog.
func Modal(title, message string, details ...string) Presentation {
	p := Present(Notification{Type: TypeConfirmation, Message: message, Details: details})
	if title != "" {
		p.Title = title
	}
	return p
}
