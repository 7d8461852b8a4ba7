package model

import "time"

type Role string

const (
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
)

type ContractStatus string

const (
	ContractNew        ContractStatus = "new"
	ContractInProgress ContractStatus = "in_progress"
	ContractTerminated ContractStatus = "terminated"
)

// All monetary amounts are int64 minor units (cents).

type Profile struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Profession string `json:"profession"`
	Role       Role   `json:"role"`
	Balance    int64  `json:"balance"`
}

type Contract struct {
	ID           int64          `json:"id"`
	ClientID     int64          `json:"client_id"`
	ContractorID int64          `json:"contractor_id"`
	Terms        string         `json:"terms"`
	Status       ContractStatus `json:"status"`
}

// IsParty reports whether the profile is the contract's client or contractor.
func (c *Contract) IsParty(profileID int64) bool {
	return c.ClientID == profileID || c.ContractorID == profileID
}

type Job struct {
	ID          int64      `json:"id"`
	ContractID  int64      `json:"contract_id"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Paid        bool       `json:"paid"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
}

// Receipt is the audit record of one job settlement.
type Receipt struct {
	ID      string    `json:"id"`
	JobID   int64     `json:"job_id"`
	PayerID int64     `json:"payer_id"`
	PayeeID int64     `json:"payee_id"`
	Amount  int64     `json:"amount"`
	PaidAt  time.Time `json:"paid_at"`
}
