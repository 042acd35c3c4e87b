// Package queue defines the audit messages published to the broker and the
// publisher that delivers them. Consumers (dashboards, notification workers)
// read these instead of polling the primary database.
package queue

import "time"

// AdmissionEvent is published once per successful gate admission.
type AdmissionEvent struct {
	ValidationID string    `json:"validation_id"`
	TicketID     string    `json:"ticket_id"`
	OperatorID   string    `json:"operator_id"`
	HolderID     string    `json:"holder_id"`
	HolderName   string    `json:"holder_name"`
	ZoneName     string    `json:"zone"`
	AdmittedAt   time.Time `json:"admitted_at"`
}

// SecurityAlertEvent is published for forgery-class rejections: tokens that
// fail authentication, identities that resolve to nothing, and cloned codes.
// Routine ALREADY_CONSUMED rejections are not alerts.
type SecurityAlertEvent struct {
	Code       string    `json:"code"`
	TicketID   string    `json:"ticket_id,omitempty"`
	OperatorID string    `json:"operator_id"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}
