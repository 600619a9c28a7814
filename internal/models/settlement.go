package models

// SettlementPhase is the single tagged state of the settlement workflow.
// Exactly one phase is active at a time, which rules out the impossible
// flag combinations a set of independent booleans would allow.
type SettlementPhase string

const (
	PhaseIdle           SettlementPhase = "idle"
	PhaseVerifying      SettlementPhase = "verifying"
	PhaseVerifiedPaid   SettlementPhase = "verified_paid"
	PhaseVerifiedFailed SettlementPhase = "verified_failed"
	PhaseSaving         SettlementPhase = "saving"
	PhaseSaved          SettlementPhase = "saved"
	PhaseEmailing       SettlementPhase = "emailing"
	PhaseEmailSent      SettlementPhase = "email_sent"
	PhaseError          SettlementPhase = "error"
)

// Terminal reports whether the settlement can make no further progress.
func (p SettlementPhase) Terminal() bool {
	switch p {
	case PhaseEmailSent, PhaseVerifiedFailed, PhaseError:
		return true
	}
	return false
}

// SettlementStatus is the user-facing snapshot of a settlement run.
type SettlementStatus struct {
	OrderID      string          `json:"orderId"`
	Phase        SettlementPhase `json:"phase"`
	Verified     bool            `json:"verified"`
	BookingSaved bool            `json:"bookingSaved"`
	EmailSent    bool            `json:"emailSent"`
	Message      string          `json:"message"`
	Progress     int             `json:"progress"`
	OrderDetails *OrderRecord    `json:"orderDetails,omitempty"`
}
