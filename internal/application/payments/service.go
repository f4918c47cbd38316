package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MpesaInitiator pushes an STK payment prompt to a phone. Satisfied by
// MpesaHTTPClient in production and by fakes in tests.
type MpesaInitiator interface {
	InitiateSTKPush(ctx context.Context, phone string, amount int, accountRef, description string) (*MpesaPushResult, error)
}

// PaystackGateway drives the redirect flow: initialize returns a hosted
// payment page, verify confirms the charge by provider reference.
type PaystackGateway interface {
	Initialize(ctx context.Context, email string, amountSubunits int, reference string) (authorizationURL string, err error)
	Verify(ctx context.Context, reference string) (*PaystackVerifyResult, error)
}

type Service struct {
	DB       *gorm.DB
	Mpesa    MpesaInitiator
	Paystack PaystackGateway

	// TestMode short-circuits the provider and confirms immediately.
	// Never enabled in production (config refuses it there).
	TestMode bool
}

// InitiateMpesa starts an STK push for the delivery fee. The provider's
// acceptance only records a pending payment; success arrives on the
// asynchronous callback.
func (s *Service) InitiateMpesa(ctx context.Context, userID, deliveryID uuid.UUID, phone string) (*domain.Payment, error) {
	if !validation.IsValidPhone(phone) {
		return nil, errors.New("Invalid phone number")
	}
	phone = validation.NormalizePhone(phone)

	delivery, amount, err := s.payableDelivery(ctx, userID, deliveryID)
	if err != nil {
		return nil, err
	}

	if s.TestMode {
		return s.confirmDirect(ctx, userID, delivery, domain.PaymentMethodMpesa, phone, "", amount, "TEST-"+uuid.NewString()[:8])
	}

	push, err := s.Mpesa.InitiateSTKPush(ctx, phone, amount, "BookBridge", "Delivery fee")
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err = upsertPending(tx, domain.Payment{
			UserID:            userID,
			DeliveryID:        delivery.ID,
			Method:            domain.PaymentMethodMpesa,
			PhoneNumber:       phone,
			Amount:            amount,
			ProviderReference: push.CheckoutRequestID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// HandleMpesaCallback processes the asynchronous Daraja result. Replays of
// the same CheckoutRequestID are no-ops once the delivery is paid.
func (s *Service) HandleMpesaCallback(ctx context.Context, body []byte) error {
	var cb mpesaCallbackEnvelope
	if err := json.Unmarshal(body, &cb); err != nil {
		return errors.New("Malformed callback payload")
	}
	stk := cb.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return errors.New("Malformed callback payload")
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment domain.Payment
		if err := tx.Where("provider_reference = ?", stk.CheckoutRequestID).First(&payment).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("No payment matches this callback")
			}
			return err
		}

		if stk.ResultCode != 0 {
			if payment.IsSuccessful {
				// Late or duplicate failure result for a reference that
				// already confirmed. The confirmed state wins.
				log.Warn().Str("checkout_request_id", stk.CheckoutRequestID).
					Int("result_code", stk.ResultCode).
					Msg("mpesa: ignoring failure callback for confirmed payment")
				return nil
			}
			log.Info().Str("checkout_request_id", stk.CheckoutRequestID).
				Int("result_code", stk.ResultCode).Str("desc", stk.ResultDesc).
				Msg("mpesa: payment failed or cancelled")
			return tx.Model(&payment).Updates(map[string]interface{}{
				"is_successful": false,
				"raw_callback":  datatypes.JSON(body),
			}).Error
		}

		receipt := ""
		for _, item := range stk.CallbackMetadata.Item {
			if item.Name == "MpesaReceiptNumber" {
				receipt = fmt.Sprintf("%v", item.Value)
			}
		}
		return confirm(tx, &payment, receipt, body)
	})
}

// InitiatePaystack creates a hosted checkout and returns its URL. Final
// confirmation happens in VerifyPaystack.
func (s *Service) InitiatePaystack(ctx context.Context, userID, deliveryID uuid.UUID, email string) (string, *domain.Payment, error) {
	if !validation.IsValidEmail(email) {
		return "", nil, errors.New("Invalid email format")
	}

	delivery, amount, err := s.payableDelivery(ctx, userID, deliveryID)
	if err != nil {
		return "", nil, err
	}

	if s.TestMode {
		payment, err := s.confirmDirect(ctx, userID, delivery, domain.PaymentMethodPaystack, "", email, amount, "TEST-"+uuid.NewString()[:8])
		return "", payment, err
	}

	reference := "BB-" + uuid.NewString()
	authURL, err := s.Paystack.Initialize(ctx, email, amount*100, reference)
	if err != nil {
		return "", nil, err
	}

	var payment *domain.Payment
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err = upsertPending(tx, domain.Payment{
			UserID:            userID,
			DeliveryID:        delivery.ID,
			Method:            domain.PaymentMethodPaystack,
			Email:             email,
			Amount:            amount,
			ProviderReference: reference,
		})
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return authURL, payment, nil
}

// VerifyPaystack confirms a redirect-flow charge by reference. Idempotent
// against duplicate verify calls.
func (s *Service) VerifyPaystack(ctx context.Context, reference string) (*domain.Payment, error) {
	if reference == "" {
		return nil, errors.New("Payment reference is required")
	}

	result, err := s.Paystack.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	var payment domain.Payment
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_reference = ?", reference).First(&payment).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("No payment matches this reference")
			}
			return err
		}
		if !result.Success {
			if payment.IsSuccessful {
				// Stale verify result after a confirmed charge is a no-op.
				return nil
			}
			return tx.Model(&payment).Updates(map[string]interface{}{
				"is_successful": false,
				"raw_callback":  datatypes.JSON(result.Raw),
			}).Error
		}
		return confirm(tx, &payment, result.TransactionCode, result.Raw)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetForDelivery returns the payment row for a delivery, if any.
func (s *Service) GetForDelivery(ctx context.Context, deliveryID uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	err := s.DB.WithContext(ctx).Where("delivery_id = ?", deliveryID).First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("No payment found for this delivery")
		}
		return nil, err
	}
	return &payment, nil
}

// payableDelivery validates that the caller may pay this delivery and
// computes the amount due: transport fee plus order totals for purchases,
// transport fee alone for swaps.
func (s *Service) payableDelivery(ctx context.Context, userID, deliveryID uuid.UUID) (*domain.Delivery, int, error) {
	var delivery domain.Delivery
	err := s.DB.WithContext(ctx).
		Preload("Orders").Preload("Orders.Listing").Preload("Swap").
		Where("id = ?", deliveryID).First(&delivery).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, 0, errors.New("Delivery not found")
		}
		return nil, 0, err
	}
	if delivery.Status != domain.DeliveryPending {
		return nil, 0, errors.New("Delivery is already paid")
	}
	if delivery.TransportCost <= 0 {
		return nil, 0, errors.New("Delivery fee has not been calculated yet")
	}
	if !canPay(&delivery, userID) {
		return nil, 0, errors.New("You are not part of this delivery")
	}

	amount := delivery.TransportCost
	for _, order := range delivery.Orders {
		amount += int(math.Round(order.AmountPaid))
	}
	return &delivery, amount, nil
}

// canPay: the buyer pays for a purchase; either party may pay for a swap.
func canPay(d *domain.Delivery, userID uuid.UUID) bool {
	if d.Swap != nil {
		return d.Swap.SenderID == userID || d.Swap.ReceiverID == userID
	}
	for _, order := range d.Orders {
		if order.BuyerID == userID {
			return true
		}
	}
	return false
}

// upsertPending writes the one payment row per delivery: a fresh attempt
// replaces a prior pending row; a successful row is never overwritten.
func upsertPending(tx *gorm.DB, next domain.Payment) (*domain.Payment, error) {
	var existing domain.Payment
	err := tx.Where("delivery_id = ?", next.DeliveryID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if err := tx.Create(&next).Error; err != nil {
			return nil, err
		}
		return &next, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.IsSuccessful {
		return nil, errors.New("Delivery is already paid")
	}
	updates := map[string]interface{}{
		"user_id":            next.UserID,
		"method":             next.Method,
		"phone_number":       next.PhoneNumber,
		"email":              next.Email,
		"amount":             next.Amount,
		"provider_reference": next.ProviderReference,
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// confirm is the single success transition: mark the payment successful,
// flip the delivery to paid and assign its tracking code. Re-invocations
// on an already-paid delivery are no-ops.
func confirm(tx *gorm.DB, payment *domain.Payment, transactionCode string, raw []byte) error {
	if payment.IsSuccessful {
		return nil
	}

	code, err := nextTrackingCode(tx)
	if err != nil {
		return err
	}
	res := tx.Model(&domain.Delivery{}).
		Where("id = ? AND status = ?", payment.DeliveryID, domain.DeliveryPending).
		Updates(map[string]interface{}{
			"status":        domain.DeliveryPaid,
			"tracking_code": code,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Replayed confirmation: delivery already left pending.
		return nil
	}

	updates := map[string]interface{}{
		"is_successful":    true,
		"transaction_code": transactionCode,
	}
	if len(raw) > 0 {
		updates["raw_callback"] = datatypes.JSON(raw)
	}
	return tx.Model(payment).Updates(updates).Error
}

// confirmDirect is the TestMode path: record and confirm in one step.
func (s *Service) confirmDirect(ctx context.Context, userID uuid.UUID, delivery *domain.Delivery, method, phone, email string, amount int, reference string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = upsertPending(tx, domain.Payment{
			UserID:            userID,
			DeliveryID:        delivery.ID,
			Method:            method,
			PhoneNumber:       phone,
			Email:             email,
			Amount:            amount,
			ProviderReference: reference,
		})
		if err != nil {
			return err
		}
		return confirm(tx, payment, reference, nil)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// nextTrackingCode issues TRK-**** codes sequentially with a collision
// re-check, since concurrent confirmations may race for the same number.
func nextTrackingCode(tx *gorm.DB) (string, error) {
	var issued int64
	if err := tx.Model(&domain.Delivery{}).
		Where("tracking_code IS NOT NULL").Count(&issued).Error; err != nil {
		return "", err
	}
	for attempt := int64(1); attempt <= 20; attempt++ {
		code := fmt.Sprintf("TRK-%04d", issued+attempt)
		var clash int64
		if err := tx.Model(&domain.Delivery{}).
			Where("tracking_code = ?", code).Count(&clash).Error; err != nil {
			return "", err
		}
		if clash == 0 {
			return code, nil
		}
	}
	return "", errors.New("Could not allocate a tracking code")
}
