package visanet

// ResponseCodeInfo contains detailed information about a gateway response code
type ResponseCodeInfo struct {
	Code        string
	Display     string
	Description string
	Approved    bool
	StepUp      bool
	Retriable   bool
	UserMessage string
}

// responseCodes maps the gateway's ResponseCode field to its handling.
// Only "00" and "10" are approvals. The gateway does not document the
// difference between the two for our merchant profile, so both are
// treated identically for authorization and compensation outcomes; if
// "10" turns out to carry partial-approval semantics the split happens
// here.
var responseCodes = map[string]ResponseCodeInfo{
	"00": {
		Code:        "00",
		Display:     "APPROVAL",
		Description: "Transaction approved",
		Approved:    true,
		UserMessage: "Pago aprobado",
	},
	"10": {
		Code:        "10",
		Display:     "APPROVAL",
		Description: "Transaction approved (alternate approval code)",
		Approved:    true,
		UserMessage: "Pago aprobado",
	},
	"3D": {
		Code:        "3D",
		Display:     "STEP-UP REQUIRED",
		Description: "Cardholder authentication challenge required before authorization",
		StepUp:      true,
		UserMessage: "Se requiere verificación adicional",
	},
	"05": {
		Code:        "05",
		Display:     "DECLINE",
		Description: "Do not honor",
		UserMessage: "Pago declinado. Contacte a su banco.",
	},
	"12": {
		Code:        "12",
		Display:     "INVALID TRANS",
		Description: "Invalid transaction",
		UserMessage: "Transacción inválida",
	},
	"14": {
		Code:        "14",
		Display:     "INVALID ACCT",
		Description: "Invalid card number",
		UserMessage: "Número de tarjeta inválido",
	},
	"51": {
		Code:        "51",
		Display:     "INSUFF FUNDS",
		Description: "Insufficient funds in account",
		Retriable:   true,
		UserMessage: "Fondos insuficientes",
	},
	"54": {
		Code:        "54",
		Display:     "EXP CARD",
		Description: "Expired card",
		UserMessage: "Tarjeta vencida",
	},
	"59": {
		Code:        "59",
		Display:     "SUSPECTED FRAUD",
		Description: "Suspected fraud",
		UserMessage: "Transacción declinada por seguridad",
	},
	"91": {
		Code:        "91",
		Display:     "ISSUER TIMEOUT",
		Description: "Issuer or switch inoperative",
		Retriable:   true,
		UserMessage: "Error temporal. Intente de nuevo.",
	},
	"96": {
		Code:        "96",
		Display:     "SYSTEM ERROR",
		Description: "System malfunction",
		Retriable:   true,
		UserMessage: "Error del sistema. Intente de nuevo.",
	},
}

// Classify returns handling information for a response code. Unknown or
// absent codes are declines: approval must be explicit, never inferred.
func Classify(code string) ResponseCodeInfo {
	if info, ok := responseCodes[code]; ok {
		return info
	}
	return ResponseCodeInfo{
		Code:        code,
		Display:     "UNKNOWN",
		Description: "Unrecognized or missing response code",
		UserMessage: "Pago declinado",
	}
}

// IsApprovedCode reports whether code is one of the two approval codes
func IsApprovedCode(code string) bool {
	return Classify(code).Approved
}
