package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cmirandac/gatepass/internal/clock"
	"github.com/cmirandac/gatepass/internal/domain"
	"github.com/cmirandac/gatepass/internal/queue"
	"github.com/cmirandac/gatepass/internal/token"
)

type GateRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketWithContext(ctx context.Context, ticketID string) (t domain.Ticket, zoneName string, eventActive bool, err error)
	MarkUsed(ctx context.Context, ticketID string, at time.Time) error
	CreateValidation(ctx context.Context, v domain.ValidationRecord) error
	GetValidationByTicket(ctx context.Context, ticketID string) (*domain.ValidationRecord, error)
	ListValidationsByEvent(ctx context.Context, eventID string) ([]domain.ValidationRecord, error)
	ListValidationsByOperator(ctx context.Context, operatorID string) ([]domain.ValidationRecord, error)
}

// TokenDecoder opens and authenticates a scanned code.
type TokenDecoder interface {
	Decode(tok string) (token.Payload, error)
}

// AuditPublisher fans admission and security events out to the broker.
// Implementations must be non-blocking failures: a dead broker never stops a
// gate decision that has already been made.
type AuditPublisher interface {
	PublishAdmission(ctx context.Context, e queue.AdmissionEvent) error
	PublishSecurityAlert(ctx context.Context, e queue.SecurityAlertEvent) error
}

type AdmissionCode string

const (
	AdmissionAdmitted AdmissionCode = "ADMITTED"

	// Forgery-class rejections; these raise an elevated alert.
	RejectForgedOrExpired AdmissionCode = "FORGED_OR_EXPIRED"
	RejectUnknownTicket   AdmissionCode = "UNKNOWN_TICKET"
	RejectClonedToken     AdmissionCode = "CLONED_TOKEN"

	// Routine rejections.
	RejectWrongEvent      AdmissionCode = "WRONG_EVENT"
	RejectAlreadyConsumed AdmissionCode = "ALREADY_CONSUMED"

	// Fail-closed: any ambiguity about storage state denies admission.
	RejectSystemError AdmissionCode = "SYSTEM_ERROR"
)

// AdmissionResult is the operator-facing outcome of a scan. On admission it
// carries the holder identity for the physical ID check at the gate; on an
// ALREADY_CONSUMED rejection it carries the prior admission if available.
type AdmissionResult struct {
	Code         AdmissionCode
	Admitted     bool
	Alert        bool
	TicketID     string
	HolderID     string
	HolderName   string
	ZoneName     string
	ValidationID string
	Timestamp    time.Time
	PriorUse     *domain.ValidationRecord
}

type ScanInput struct {
	Code         string
	OperatorID   string
	Device       string
	Observations string
}

// GateService is the single entry point for gate scans.
type GateService struct {
	repo    GateRepository
	decoder TokenDecoder
	clock   clock.Clock
	audit   AuditPublisher
	logger  *log.Logger
}

func NewGateService(repo GateRepository, dec TokenDecoder, clk clock.Clock, audit AuditPublisher, logger *log.Logger) *GateService {
	if logger == nil {
		logger = log.Default()
	}
	return &GateService{
		repo:    repo,
		decoder: dec,
		clock:   clk,
		audit:   audit,
		logger:  logger,
	}
}

// ValidateScan decides admission for a scanned code. Every path is
// fail-closed: only a committed USED transition with its audit row yields
// Admitted, anything ambiguous is a rejection.
func (s *GateService) ValidateScan(ctx context.Context, in ScanInput) AdmissionResult {
	now := s.clock.Now()

	payload, err := s.decoder.Decode(in.Code)
	if err != nil {
		// A code that does not authenticate is treated as hostile, not
		// merely malformed. The error kind is for our logs only; the
		// operator sees a single rejection code.
		s.logger.Printf("scan rejected operator=%s reason=%s err=%v", in.OperatorID, RejectForgedOrExpired, err)
		return s.reject(ctx, RejectForgedOrExpired, "", in, "token failed authentication or expired", now)
	}

	ticket, zoneName, eventActive, err := s.repo.GetTicketWithContext(ctx, payload.TicketID)
	switch {
	case errors.Is(err, domain.ErrTicketNotFound), errors.Is(err, domain.ErrInvalidID):
		// Decrypts cleanly but references nothing: same severity as forgery.
		s.logger.Printf("scan rejected operator=%s reason=%s ticket=%s", in.OperatorID, RejectUnknownTicket, payload.TicketID)
		return s.reject(ctx, RejectUnknownTicket, payload.TicketID, in, "decoded identity references no ticket", now)
	case err != nil:
		s.logger.Printf("scan failed operator=%s ticket=%s err=%v", in.OperatorID, payload.TicketID, err)
		return AdmissionResult{Code: RejectSystemError, Timestamp: now}
	}

	// Anti-replay: only the exact bytes issued for this ticket are
	// acceptable. A semantically equivalent token re-encrypted under a
	// fresh IV decodes fine but does not match the stored copy.
	if ticket.IssuedToken != in.Code {
		s.logger.Printf("scan rejected operator=%s reason=%s ticket=%s", in.OperatorID, RejectClonedToken, ticket.ID)
		return s.reject(ctx, RejectClonedToken, ticket.ID, in, "token does not match issued original", now)
	}

	if !eventActive {
		return AdmissionResult{
			Code:       RejectWrongEvent,
			TicketID:   ticket.ID,
			HolderID:   ticket.HolderID,
			HolderName: ticket.HolderName,
			ZoneName:   zoneName,
			Timestamp:  now,
		}
	}

	// Already settled at read time; no need to enter the race.
	if err := ticket.CanConsume(); err != nil {
		return s.alreadyConsumed(ctx, ticket, zoneName, now)
	}

	validation := domain.ValidationRecord{
		ID:           uuid.NewString(),
		TicketID:     ticket.ID,
		OperatorID:   in.OperatorID,
		Observations: in.Observations,
		Device:       in.Device,
		RecordedAt:   now,
	}

	// The USED transition and the audit row commit together or not at all.
	// Concurrent scans race on the conditional update and the unique
	// constraint; exactly one commits.
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.MarkUsed(txCtx, ticket.ID, now); err != nil {
			return err
		}
		return s.repo.CreateValidation(txCtx, validation)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyConsumed) {
			return s.alreadyConsumed(ctx, ticket, zoneName, now)
		}
		s.logger.Printf("scan failed operator=%s ticket=%s err=%v", in.OperatorID, ticket.ID, err)
		return AdmissionResult{Code: RejectSystemError, TicketID: ticket.ID, Timestamp: now}
	}

	if s.audit != nil {
		// Best effort; the admission already committed.
		_ = s.audit.PublishAdmission(ctx, queue.AdmissionEvent{
			ValidationID: validation.ID,
			TicketID:     ticket.ID,
			OperatorID:   in.OperatorID,
			HolderID:     ticket.HolderID,
			HolderName:   ticket.HolderName,
			ZoneName:     zoneName,
			AdmittedAt:   now,
		})
	}

	return AdmissionResult{
		Code:         AdmissionAdmitted,
		Admitted:     true,
		TicketID:     ticket.ID,
		HolderID:     ticket.HolderID,
		HolderName:   ticket.HolderName,
		ZoneName:     zoneName,
		ValidationID: validation.ID,
		Timestamp:    now,
	}
}

func (s *GateService) alreadyConsumed(ctx context.Context, ticket domain.Ticket, zoneName string, now time.Time) AdmissionResult {
	res := AdmissionResult{
		Code:       RejectAlreadyConsumed,
		TicketID:   ticket.ID,
		HolderID:   ticket.HolderID,
		HolderName: ticket.HolderName,
		ZoneName:   zoneName,
		Timestamp:  now,
	}
	// Routine outcome, so the lookup is informational only.
	if prior, err := s.repo.GetValidationByTicket(ctx, ticket.ID); err == nil {
		res.PriorUse = prior
	}
	return res
}

func (s *GateService) reject(ctx context.Context, code AdmissionCode, ticketID string, in ScanInput, detail string, now time.Time) AdmissionResult {
	if s.audit != nil {
		_ = s.audit.PublishSecurityAlert(ctx, queue.SecurityAlertEvent{
			Code:       string(code),
			TicketID:   ticketID,
			OperatorID: in.OperatorID,
			Detail:     detail,
			OccurredAt: now,
		})
	}
	return AdmissionResult{Code: code, Alert: true, TicketID: ticketID, Timestamp: now}
}

// EventValidations lists the admission history for an event.
func (s *GateService) EventValidations(ctx context.Context, eventID string) ([]domain.ValidationRecord, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListValidationsByEvent(ctx, eventID)
}

// OperatorValidations lists the admissions recorded by one operator.
func (s *GateService) OperatorValidations(ctx context.Context, operatorID string) ([]domain.ValidationRecord, error) {
	if operatorID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListValidationsByOperator(ctx, operatorID)
}
