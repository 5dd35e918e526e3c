package types

import (
	"time"
)

// SSLStatus is the certificate state of a domain.
type SSLStatus string

const (
	SSLStatusNone    SSLStatus = "none"
	SSLStatusPending SSLStatus = "pending"
	SSLStatusIssued  SSLStatus = "issued"
	SSLStatusFailed  SSLStatus = "failed"
)

// Domain is a hostname routed by the platform's ingress.
type Domain struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	SSLStatus    SSLStatus `json:"sslStatus"`
	SSLIssuer    string    `json:"sslIssuer"`
	SSLAutoRenew bool      `json:"sslAutoRenew"`
	SSLIssuedAt  time.Time `json:"sslIssuedAt"`
	SSLExpiredAt time.Time `json:"sslExpiredAt"`
}

// Validate checks a Domain.
func (d *Domain) Validate() error {
	if d.ID == 0 || d.Name == "" {
		return NewFieldValidationError("domain", "missing id or name")
	}
	return nil
}

// DomainInput creates a domain.
type DomainInput struct {
	Name string `json:"name"`
}
