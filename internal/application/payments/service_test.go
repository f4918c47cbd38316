package payments

import (
	"context"
	"fmt"
	"testing"

	"bookbridge-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMpesa struct {
	result *MpesaPushResult
	err    error

	gotPhone  string
	gotAmount int
}

func (f *fakeMpesa) InitiateSTKPush(ctx context.Context, phone string, amount int, accountRef, description string) (*MpesaPushResult, error) {
	f.gotPhone, f.gotAmount = phone, amount
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePaystack struct {
	authURL      string
	verifyResult *PaystackVerifyResult

	gotAmountSubunits int
	gotReference      string
}

func (f *fakePaystack) Initialize(ctx context.Context, email string, amountSubunits int, reference string) (string, error) {
	f.gotAmountSubunits, f.gotReference = amountSubunits, reference
	return f.authURL, nil
}

func (f *fakePaystack) Verify(ctx context.Context, reference string) (*PaystackVerifyResult, error) {
	return f.verifyResult, nil
}

func setupPaymentDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Textbook{}, &domain.Listing{},
		&domain.SwapRequest{}, &domain.Order{}, &domain.Delivery{},
		&domain.Payment{},
	))
	return db
}

// seedPayable builds a pending delivery with one 300/= order and an 80/=
// quoted fee. Amount due: 380.
func seedPayable(t *testing.T, db *gorm.DB) (buyer *domain.User, delivery *domain.Delivery) {
	buyer = &domain.User{Email: "buyer@test.com", PasswordHash: "x", FullName: "Buyer", Role: domain.RoleParent, Location: "Kamakwa"}
	seller := &domain.User{Email: "seller@test.com", PasswordHash: "x", FullName: "Seller", Role: domain.RoleParent, Location: "Skuta"}
	require.NoError(t, db.Create(buyer).Error)
	require.NoError(t, db.Create(seller).Error)

	book := &domain.Textbook{Title: "Math F1", Subject: "Math"}
	require.NoError(t, db.Create(book).Error)
	listing := &domain.Listing{
		ListedByID: seller.ID, TextbookID: book.ID,
		ListingType: domain.ListingTypeSell, Condition: domain.ConditionGood,
		Price: 300, IsActive: false,
	}
	require.NoError(t, db.Create(listing).Error)
	order := &domain.Order{BuyerID: buyer.ID, ListingID: listing.ID, AmountPaid: 300}
	require.NoError(t, db.Create(order).Error)

	delivery = &domain.Delivery{
		PickupLocation: "Skuta", DropoffLocation: "Kamakwa",
		TransportCost: 80, Status: domain.DeliveryPending,
	}
	require.NoError(t, db.Create(delivery).Error)
	require.NoError(t, db.Model(delivery).Association("Orders").Append(order))
	return buyer, delivery
}

func mpesaCallbackJSON(checkoutRequestID string, resultCode int, receipt string) []byte {
	if resultCode != 0 {
		return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"CheckoutRequestID":%q,"ResultCode":%d,"ResultDesc":"Request cancelled by user"}}}`,
			checkoutRequestID, resultCode))
	}
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"CheckoutRequestID":%q,"ResultCode":0,"ResultDesc":"Success","CallbackMetadata":{"Item":[{"Name":"Amount","Value":380},{"Name":"MpesaReceiptNumber","Value":%q}]}}}}`,
		checkoutRequestID, receipt))
}

func TestInitiateMpesa_RecordsPendingPayment(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	mpesa := &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}
	svc := &Service{DB: db, Mpesa: mpesa}

	payment, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, "254712345678", mpesa.gotPhone)
	assert.Equal(t, 380, mpesa.gotAmount, "fee plus order total")
	assert.Equal(t, 380, payment.Amount)
	assert.False(t, payment.IsSuccessful)
	assert.Equal(t, "ws_CO_1", payment.ProviderReference)

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	assert.Equal(t, domain.DeliveryPending, stored.Status, "only the callback flips the state")
}

func TestInitiateMpesa_RejectsUnquotedDelivery(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	require.NoError(t, db.Model(&domain.Delivery{}).
		Where("id = ?", delivery.ID).Update("transport_cost", 0).Error)
	svc := &Service{DB: db, Mpesa: &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}}

	_, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.Error(t, err)
	assert.Equal(t, "Delivery fee has not been calculated yet", err.Error())
}

func TestInitiateMpesa_OnlyBuyerCanPay(t *testing.T) {
	db := setupPaymentDB(t)
	_, delivery := seedPayable(t, db)
	stranger := &domain.User{Email: "stranger@test.com", PasswordHash: "x", FullName: "Stranger", Role: domain.RoleParent}
	require.NoError(t, db.Create(stranger).Error)
	svc := &Service{DB: db, Mpesa: &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}}

	_, err := svc.InitiateMpesa(context.Background(), stranger.ID, delivery.ID, "0712345678")
	require.Error(t, err)
	assert.Equal(t, "You are not part of this delivery", err.Error())
}

func TestHandleMpesaCallback_ConfirmsAndIssuesTrackingCode(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	svc := &Service{DB: db, Mpesa: &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}}

	_, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)

	require.NoError(t, svc.HandleMpesaCallback(context.Background(), mpesaCallbackJSON("ws_CO_1", 0, "RKT12XYZ")))

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	assert.Equal(t, domain.DeliveryPaid, stored.Status)
	require.NotNil(t, stored.TrackingCode)
	assert.Equal(t, "TRK-0001", *stored.TrackingCode)

	payment, err := svc.GetForDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.True(t, payment.IsSuccessful)
	assert.Equal(t, "RKT12XYZ", payment.TransactionCode)
}

func TestHandleMpesaCallback_ReplayIsNoOp(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	svc := &Service{DB: db, Mpesa: &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}}

	_, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)

	body := mpesaCallbackJSON("ws_CO_1", 0, "RKT12XYZ")
	require.NoError(t, svc.HandleMpesaCallback(context.Background(), body))
	require.NoError(t, svc.HandleMpesaCallback(context.Background(), body))

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	require.NotNil(t, stored.TrackingCode)
	assert.Equal(t, "TRK-0001", *stored.TrackingCode, "replay must not reissue the code")

	var payments int64
	db.Model(&domain.Payment{}).Count(&payments)
	assert.Equal(t, int64(1), payments)
}

func TestHandleMpesaCallback_FailureAfterSuccessKeptConfirmed(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	svc := &Service{DB: db, Mpesa: &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}}

	_, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)
	require.NoError(t, svc.HandleMpesaCallback(context.Background(), mpesaCallbackJSON("ws_CO_1", 0, "RKT12XYZ")))

	// A late failure result for the same CheckoutRequestID must not
	// downgrade the confirmed payment.
	require.NoError(t, svc.HandleMpesaCallback(context.Background(), mpesaCallbackJSON("ws_CO_1", 1032, "")))

	payment, err := svc.GetForDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.True(t, payment.IsSuccessful)
	assert.Equal(t, "RKT12XYZ", payment.TransactionCode)

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	assert.Equal(t, domain.DeliveryPaid, stored.Status)
}

func TestHandleMpesaCallback_FailureLeavesDeliveryPending(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	svc := &Service{DB: db, Mpesa: &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}}

	_, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)

	require.NoError(t, svc.HandleMpesaCallback(context.Background(), mpesaCallbackJSON("ws_CO_1", 1032, "")))

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	assert.Equal(t, domain.DeliveryPending, stored.Status)

	payment, err := svc.GetForDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.False(t, payment.IsSuccessful)
	assert.NotEmpty(t, payment.RawCallback)
}

func TestHandleMpesaCallback_UnknownReference(t *testing.T) {
	db := setupPaymentDB(t)
	svc := &Service{DB: db}

	err := svc.HandleMpesaCallback(context.Background(), mpesaCallbackJSON("ws_CO_none", 0, "RKT"))
	require.Error(t, err)
	assert.Equal(t, "No payment matches this callback", err.Error())

	err = svc.HandleMpesaCallback(context.Background(), []byte(`{"Body":{}}`))
	require.Error(t, err)
	assert.Equal(t, "Malformed callback payload", err.Error())
}

func TestInitiateRetry_ReplacesPendingRow(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	mpesa := &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_1"}}
	ps := &fakePaystack{authURL: "https://checkout.paystack.com/x"}
	svc := &Service{DB: db, Mpesa: mpesa, Paystack: ps}

	_, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)

	// Buyer gives up on the prompt and switches to card.
	_, payment, err := svc.InitiatePaystack(context.Background(), buyer.ID, delivery.ID, "buyer@test.com")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodPaystack, payment.Method)

	var rows int64
	db.Model(&domain.Payment{}).Where("delivery_id = ?", delivery.ID).Count(&rows)
	assert.Equal(t, int64(1), rows, "one payment row per delivery")

	// The abandoned STK callback no longer matches anything.
	err = svc.HandleMpesaCallback(context.Background(), mpesaCallbackJSON("ws_CO_1", 0, "RKT"))
	require.Error(t, err)
}

func TestInitiatePaystack_ChargesSubunits(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	ps := &fakePaystack{authURL: "https://checkout.paystack.com/x"}
	svc := &Service{DB: db, Paystack: ps}

	authURL, payment, err := svc.InitiatePaystack(context.Background(), buyer.ID, delivery.ID, "buyer@test.com")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/x", authURL)
	assert.Equal(t, 38000, ps.gotAmountSubunits)
	assert.Equal(t, ps.gotReference, payment.ProviderReference)
	assert.Contains(t, payment.ProviderReference, "BB-")
}

func TestVerifyPaystack_ConfirmsOnce(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	ps := &fakePaystack{authURL: "https://checkout.paystack.com/x"}
	svc := &Service{DB: db, Paystack: ps}

	_, payment, err := svc.InitiatePaystack(context.Background(), buyer.ID, delivery.ID, "buyer@test.com")
	require.NoError(t, err)

	ps.verifyResult = &PaystackVerifyResult{
		Success:         true,
		TransactionCode: "PS-777",
		AmountSubunits:  38000,
		Raw:             []byte(`{"data":{"status":"success"}}`),
	}
	confirmed, err := svc.VerifyPaystack(context.Background(), payment.ProviderReference)
	require.NoError(t, err)
	assert.True(t, confirmed.IsSuccessful)

	// Verify again: still one successful payment, delivery untouched.
	_, err = svc.VerifyPaystack(context.Background(), payment.ProviderReference)
	require.NoError(t, err)

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	assert.Equal(t, domain.DeliveryPaid, stored.Status)
}

func TestVerifyPaystack_StaleFailureAfterSuccess(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	ps := &fakePaystack{authURL: "https://checkout.paystack.com/x"}
	svc := &Service{DB: db, Paystack: ps}

	_, payment, err := svc.InitiatePaystack(context.Background(), buyer.ID, delivery.ID, "buyer@test.com")
	require.NoError(t, err)

	ps.verifyResult = &PaystackVerifyResult{Success: true, TransactionCode: "PS-777", AmountSubunits: 38000}
	_, err = svc.VerifyPaystack(context.Background(), payment.ProviderReference)
	require.NoError(t, err)

	// A later verify that reports failure must not unset the confirmation.
	ps.verifyResult = &PaystackVerifyResult{Success: false, Raw: []byte(`{"data":{"status":"abandoned"}}`)}
	_, err = svc.VerifyPaystack(context.Background(), payment.ProviderReference)
	require.NoError(t, err)

	stored, err := svc.GetForDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSuccessful)
	assert.Equal(t, "PS-777", stored.TransactionCode)
}

func TestTestMode_ConfirmsWithoutProvider(t *testing.T) {
	db := setupPaymentDB(t)
	buyer, delivery := seedPayable(t, db)
	svc := &Service{DB: db, TestMode: true}

	payment, err := svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.NoError(t, err)
	assert.True(t, payment.IsSuccessful)
	assert.Contains(t, payment.ProviderReference, "TEST-")

	var stored domain.Delivery
	require.NoError(t, db.First(&stored, "id = ?", delivery.ID).Error)
	assert.Equal(t, domain.DeliveryPaid, stored.Status)
	require.NotNil(t, stored.TrackingCode)

	// Paying again is refused outright.
	_, err = svc.InitiateMpesa(context.Background(), buyer.ID, delivery.ID, "0712345678")
	require.Error(t, err)
	assert.Equal(t, "Delivery is already paid", err.Error())
}

func TestPayableDelivery_SwapFeeOnly(t *testing.T) {
	db := setupPaymentDB(t)
	alice := &domain.User{Email: "alice@test.com", PasswordHash: "x", FullName: "Alice", Role: domain.RoleParent, Location: "Kamakwa"}
	bob := &domain.User{Email: "bob@test.com", PasswordHash: "x", FullName: "Bob", Role: domain.RoleParent, Location: "Skuta"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	book := &domain.Textbook{Title: "Physics F3", Subject: "Physics"}
	require.NoError(t, db.Create(book).Error)
	reqListing := &domain.Listing{ListedByID: bob.ID, TextbookID: book.ID, ListingType: domain.ListingTypeExchange, Condition: domain.ConditionGood, IsActive: false}
	offListing := &domain.Listing{ListedByID: alice.ID, TextbookID: book.ID, ListingType: domain.ListingTypeExchange, Condition: domain.ConditionGood, IsActive: false}
	require.NoError(t, db.Create(reqListing).Error)
	require.NoError(t, db.Create(offListing).Error)
	swap := &domain.SwapRequest{
		SenderID: alice.ID, ReceiverID: bob.ID,
		RequestedListingID: reqListing.ID, OfferedListingID: offListing.ID,
		Status: domain.SwapAccepted,
	}
	require.NoError(t, db.Create(swap).Error)
	delivery := &domain.Delivery{
		SwapID: &swap.ID, PickupLocation: "Kamakwa", DropoffLocation: "Skuta",
		TransportCost: 110, Status: domain.DeliveryPending,
	}
	require.NoError(t, db.Create(delivery).Error)

	mpesa := &fakeMpesa{result: &MpesaPushResult{CheckoutRequestID: "ws_CO_swap"}}
	svc := &Service{DB: db, Mpesa: mpesa}

	// Either party may pay; the amount is the round-trip fee alone.
	payment, err := svc.InitiateMpesa(context.Background(), bob.ID, delivery.ID, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, 110, payment.Amount)
	assert.Equal(t, 110, mpesa.gotAmount)
}
