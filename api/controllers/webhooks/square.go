package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/responses"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/payments"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/square"
)

const maxWebhookBody = 1 << 20

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *square.WebhookEvent) (*payments.ConfirmationResult, error)
}

type squareWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type signatureVerifier interface {
	VerifyWebhook(ctx context.Context, body []byte, signature string) error
}

type webhookAck struct {
	EventID   string                       `json:"event_id"`
	Duplicate bool                         `json:"duplicate,omitempty"`
	Result    *payments.ConfirmationResult `json:"result,omitempty"`
}

// SquareWebhook verifies, de-duplicates and applies Square payment notifications.
// Failures release the event id so Square's redelivery is processed again.
func SquareWebhook(svc SquareWebhookService, verifier signatureVerifier, guard squareWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "square webhook unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get(square.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "square signature missing"))
			return
		}
		if err := verifier.VerifyWebhook(ctx, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid square signature"))
			return
		}

		event, err := square.ParseWebhookEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"square_event_id":   event.EventID,
				"square_event_type": event.Type,
			})
		}

		duplicate, err := guard.CheckAndMark(ctx, event.EventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency"))
			return
		}
		if duplicate {
			if logg != nil {
				logg.Info(ctx, "square event already delivered")
			}
			responses.WriteSuccess(w, webhookAck{EventID: event.EventID, Duplicate: true})
			return
		}

		result, err := svc.HandleEvent(ctx, event)
		if err != nil {
			if releaseErr := guard.Release(ctx, event.EventID); releaseErr != nil && logg != nil {
				logg.Error(ctx, "release square event", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "square event processed")
		}
		responses.WriteSuccess(w, webhookAck{EventID: event.EventID, Result: result})
	}
}
