package app

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/cmirandac/gatepass/internal/domain"
)

const qrImageSize = 512

// RenderScannableCode returns the ticket's issued token as a PNG QR code
// at the highest error-correction level.
func (s *TicketService) RenderScannableCode(ctx context.Context, ticketID string) ([]byte, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IssuedToken == "" {
		return nil, domain.ErrTicketNotFound
	}

	png, err := qrcode.Encode(ticket.IssuedToken, qrcode.Highest, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
