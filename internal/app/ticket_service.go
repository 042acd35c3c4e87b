package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cmirandac/gatepass/internal/clock"
	"github.com/cmirandac/gatepass/internal/domain"
)

type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetZone(ctx context.Context, zoneID string) (domain.Zone, error)
	TryReserve(ctx context.Context, zoneID string) (bool, error)
	ReleaseZone(ctx context.Context, zoneID string) error
	CountActiveByHolder(ctx context.Context, eventID, holderID string) (int, error)
	CreateTicket(ctx context.Context, t domain.Ticket) (int64, error)
	UpdateIssuedToken(ctx context.Context, ticketID, tok string) error
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error)
	MarkVoid(ctx context.Context, ticketID, reason string, at time.Time) error
	ListActiveTicketsByEvent(ctx context.Context, eventID string) ([]domain.Ticket, error)
}

// TokenEncoder produces the scannable token for a ticket identity.
type TokenEncoder interface {
	Encode(ticketID string, serial int64, validity time.Duration) (string, error)
}

// TicketService owns the issuance and cancellation flows: it is the only
// code that creates ACTIVE tickets and the only code that voids them.
type TicketService struct {
	repo     TicketRepository
	encoder  TokenEncoder
	clock    clock.Clock
	validity time.Duration
}

const defaultTokenValidity = 720 * time.Hour

func NewTicketService(repo TicketRepository, enc TokenEncoder, clk clock.Clock, opts ...TicketServiceOption) *TicketService {
	svc := &TicketService{
		repo:     repo,
		encoder:  enc,
		clock:    clk,
		validity: defaultTokenValidity,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type TicketServiceOption func(*TicketService)

// WithTokenValidity overrides how long issued tokens stay decodable.
func WithTokenValidity(d time.Duration) TicketServiceOption {
	return func(s *TicketService) {
		if d > 0 {
			s.validity = d
		}
	}
}

type IssueTicketInput struct {
	ZoneID     string
	HolderID   string
	HolderName string
}

// IssueTicket reserves a capacity slot, creates the ticket and stores its
// issued token, all in one transaction. Precondition failures (holder cap,
// sold-out zone) leave no state behind.
func (s *TicketService) IssueTicket(ctx context.Context, in IssueTicketInput) (domain.Ticket, error) {
	if !domain.ValidHolderID(in.HolderID) {
		return domain.Ticket{}, domain.ErrInvalidHolderID
	}
	if in.HolderName == "" {
		return domain.Ticket{}, domain.ErrHolderNameRequired
	}

	now := s.clock.Now()
	var result domain.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		zone, err := s.repo.GetZone(txCtx, in.ZoneID)
		if err != nil {
			return err
		}

		held, err := s.repo.CountActiveByHolder(txCtx, zone.EventID, in.HolderID)
		if err != nil {
			return err
		}
		if held >= domain.MaxActiveTicketsPerHolder {
			return domain.ErrHolderLimitExceeded
		}

		// The conditional update inside TryReserve is what prevents
		// oversell; no capacity check happens outside the storage engine.
		reserved, err := s.repo.TryReserve(txCtx, in.ZoneID)
		if err != nil {
			return err
		}
		if !reserved {
			return domain.ErrCapacityExceeded
		}

		ticket := domain.Ticket{
			ID:         uuid.NewString(),
			ZoneID:     in.ZoneID,
			EventID:    zone.EventID,
			HolderID:   in.HolderID,
			HolderName: in.HolderName,
			State:      domain.TicketStateActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		serial, err := s.repo.CreateTicket(txCtx, ticket)
		if err != nil {
			return err
		}
		ticket.Serial = serial

		tok, err := s.encoder.Encode(ticket.ID, serial, s.validity)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateIssuedToken(txCtx, ticket.ID, tok); err != nil {
			return err
		}
		ticket.IssuedToken = tok

		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}

func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	if ticketID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	return s.repo.GetTicket(ctx, ticketID)
}

// VoidTicket cancels an ACTIVE ticket and releases its capacity slot. A USED
// ticket can never be voided; the admission audit trail stays intact.
func (s *TicketService) VoidTicket(ctx context.Context, ticketID, reason string) (domain.Ticket, error) {
	if ticketID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	if reason == "" {
		return domain.Ticket{}, domain.ErrVoidReasonRequired
	}

	now := s.clock.Now()
	var result domain.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		if err := ticket.CanVoid(); err != nil {
			return err
		}
		if err := s.repo.MarkVoid(txCtx, ticketID, reason, now); err != nil {
			return err
		}
		if err := s.repo.ReleaseZone(txCtx, ticket.ZoneID); err != nil {
			return err
		}

		ticket.State = domain.TicketStateVoid
		ticket.VoidReason = reason
		ticket.UpdatedAt = now
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}

// RegenerateEventTokens re-encodes the stored token of every ACTIVE ticket of
// an event. Previously issued codes stop matching the stored copy and scan as
// CLONED_TOKEN, which makes this the revocation lever after a code leak.
func (s *TicketService) RegenerateEventTokens(ctx context.Context, eventID string) (int, error) {
	if eventID == "" {
		return 0, domain.ErrInvalidID
	}

	var count int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tickets, err := s.repo.ListActiveTicketsByEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			tok, err := s.encoder.Encode(t.ID, t.Serial, s.validity)
			if err != nil {
				return err
			}
			if err := s.repo.UpdateIssuedToken(txCtx, t.ID, tok); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
