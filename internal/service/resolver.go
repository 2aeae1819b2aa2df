package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopflow/fulfillment-service/internal/gateway"
)

type IdentifierKind int

const (
	IdentifierUnknown IdentifierKind = iota
	IdentifierOrderReference
	IdentifierGatewayPaymentID
)

// ClassifyIdentifier guesses what the gateway put in the webhook payload.
// Gateway payment ids are purely numeric; order references carry a dash
// separator. This is a heuristic over formats the gateway does not
// contractually guarantee; revisit if the gateway changes its id scheme.
func ClassifyIdentifier(id string) IdentifierKind {
	if id == "" {
		return IdentifierUnknown
	}

	digits := true
	dash := false
	for _, r := range id {
		if r == '-' {
			dash = true
		}
		if r < '0' || r > '9' {
			digits = false
		}
	}

	switch {
	case dash:
		return IdentifierOrderReference
	case digits:
		return IdentifierGatewayPaymentID
	default:
		return IdentifierUnknown
	}
}

type Gateway interface {
	FetchPayment(ctx context.Context, paymentID string) (gateway.PaymentRecord, error)
	SearchPaymentsByReference(ctx context.Context, ref string) ([]gateway.PaymentRecord, error)
}

type recordApplier interface {
	Apply(ctx context.Context, rec gateway.PaymentRecord) (Outcome, error)
}

// Resolver maps an inbound webhook identifier to gateway payment records and
// feeds each one to the reconciliation engine. Direct fetch by numeric id is
// cheap; the search endpoint is used only when the id cannot be a payment id.
type Resolver struct {
	logger  *slog.Logger
	gateway Gateway
	engine  recordApplier
}

func NewResolver(logger *slog.Logger, gw Gateway, engine recordApplier) *Resolver {
	return &Resolver{
		logger:  logger.With(slog.String("service", "resolver")),
		gateway: gw,
		engine:  engine,
	}
}

func (r *Resolver) Process(ctx context.Context, rawID string) error {
	switch ClassifyIdentifier(rawID) {
	case IdentifierOrderReference:
		return r.processByReference(ctx, rawID)
	default:
		// Unknown shapes get a best-effort direct fetch.
		return r.processByPaymentID(ctx, rawID)
	}
}

func (r *Resolver) processByReference(ctx context.Context, ref string) error {
	records, err := r.gateway.SearchPaymentsByReference(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to search payments by reference: %w", err)
	}

	if len(records) == 0 {
		r.logger.Info("no gateway payments for reference", slog.String("reference", ref))
		return nil
	}

	for _, rec := range records {
		if err := r.apply(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) processByPaymentID(ctx context.Context, paymentID string) error {
	rec, err := r.gateway.FetchPayment(ctx, paymentID)
	if errors.Is(err, gateway.ErrPaymentRecordNotFound) {
		r.logger.Info("gateway payment not found", slog.String("payment_id", paymentID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch payment: %w", err)
	}

	return r.apply(ctx, rec)
}

func (r *Resolver) apply(ctx context.Context, rec gateway.PaymentRecord) error {
	outcome, err := r.engine.Apply(ctx, rec)
	if err != nil {
		return err
	}

	r.logger.Debug("payment record applied",
		slog.String("payment_id", rec.ID),
		slog.String("status", string(outcome.Status)),
		slog.Bool("side_effects", outcome.SideEffects),
		slog.String("reason", outcome.Reason),
	)
	return nil
}
