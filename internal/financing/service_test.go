package financing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/registry"
	"partpay/financing-portal/financing-portal-backend/internal/treasury"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Transact(ctx context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *MockRepository) CreateEquipment(ctx context.Context, equipment *Equipment) error {
	args := m.Called(ctx, equipment)
	return args.Error(0)
}

func (m *MockRepository) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Equipment), args.Error(1)
}

func (m *MockRepository) SaveEquipment(ctx context.Context, equipment *Equipment) error {
	args := m.Called(ctx, equipment)
	return args.Error(0)
}

func (m *MockRepository) ListEquipmentByVendor(ctx context.Context, vendorID uuid.UUID) ([]Equipment, error) {
	args := m.Called(ctx, vendorID)
	return args.Get(0).([]Equipment), args.Error(1)
}

func (m *MockRepository) ListEquipmentByFunder(ctx context.Context, funderID uuid.UUID) ([]Equipment, error) {
	args := m.Called(ctx, funderID)
	return args.Get(0).([]Equipment), args.Error(1)
}

func (m *MockRepository) CreateFunderOffer(ctx context.Context, offer *FunderOffer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockRepository) GetFunderOfferByEscrow(ctx context.Context, escrowID uuid.UUID) (*FunderOffer, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FunderOffer), args.Error(1)
}

func (m *MockRepository) CreateContract(ctx context.Context, contract *Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockRepository) GetContract(ctx context.Context, id uuid.UUID) (*Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Contract), args.Error(1)
}

func (m *MockRepository) SaveContract(ctx context.Context, contract *Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockRepository) ListContractsByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Contract, error) {
	args := m.Called(ctx, borrowerID)
	return args.Get(0).([]Contract), args.Error(1)
}

func (m *MockRepository) ListOpenContracts(ctx context.Context) ([]Contract, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Contract), args.Error(1)
}

func (m *MockRepository) CreateEscrow(ctx context.Context, escrow *Escrow) error {
	args := m.Called(ctx, escrow)
	return args.Error(0)
}

func (m *MockRepository) GetEscrow(ctx context.Context, id uuid.UUID) (*Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Escrow), args.Error(1)
}

func (m *MockRepository) SaveEscrow(ctx context.Context, escrow *Escrow) error {
	args := m.Called(ctx, escrow)
	return args.Error(0)
}

func (m *MockRepository) CreateBorrower(ctx context.Context, borrower *Borrower) error {
	args := m.Called(ctx, borrower)
	return args.Error(0)
}

func (m *MockRepository) GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Borrower), args.Error(1)
}

func (m *MockRepository) GetBorrowerByAuthority(ctx context.Context, authorityID uuid.UUID) (*Borrower, error) {
	args := m.Called(ctx, authorityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Borrower), args.Error(1)
}

func (m *MockRepository) SaveBorrower(ctx context.Context, borrower *Borrower) error {
	args := m.Called(ctx, borrower)
	return args.Error(0)
}

func (m *MockRepository) CreateCreditScore(ctx context.Context, score *CreditScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockRepository) GetCreditScoreByBorrower(ctx context.Context, borrowerID uuid.UUID) (*CreditScore, error) {
	args := m.Called(ctx, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditScore), args.Error(1)
}

func (m *MockRepository) SaveCreditScore(ctx context.Context, score *CreditScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

// MockTransferClient records value transfers instead of calling the treasury
type MockTransferClient struct {
	mock.Mock
}

func (m *MockTransferClient) Transfer(ctx context.Context, req treasury.TransferRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockAssetRegistry stubs the digital-asset registry
type MockAssetRegistry struct {
	mock.Mock
}

func (m *MockAssetRegistry) CreateAsset(ctx context.Context, req registry.CreateAssetRequest) (uuid.UUID, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAssetRegistry) VerifyAsset(ctx context.Context, assetID uuid.UUID) (bool, error) {
	args := m.Called(ctx, assetID)
	return args.Bool(0), args.Error(1)
}

// fixedClock returns a constant instant, like the on-ledger clock oracle
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now(ctx context.Context) (time.Time, error) {
	return c.now, nil
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, transfer treasury.TransferClient, assets registry.AssetRegistry, now time.Time) Service {
	cfg := DefaultConfig()
	cfg.StablecoinMint = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return NewService(repo, transfer, fixedClock{now: now}, assets, nil, zap.NewNop(), cfg)
}

func vendorEquipment(vendorID uuid.UUID, quantity uint64) *Equipment {
	return &Equipment{
		ID:                 uuid.New(),
		VendorID:           vendorID,
		Name:               "Solar Mill",
		URI:                "https://assets.example.com/solar-mill.json",
		Price:              1_000,
		MinimumDeposit:     100,
		MaxDurationSeconds: secondsPerMonth,
		PaymentPreference:  PreferenceEither,
		TotalQuantity:      quantity,
		Status:             EquipmentStatusAvailable,
		DeliveryStatus:     DeliveryStatusPending,
	}
}

func TestCreateContractVendorPath(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	vendorID := uuid.New()
	borrowerID := uuid.New()
	equipment := vendorEquipment(vendorID, 10)

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetBorrower", mock.Anything, borrowerID).Return(&Borrower{ID: borrowerID}, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateEscrow", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateContract", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	contract, err := svc.CreateContract(context.Background(), CreateContractRequest{
		BorrowerID:  borrowerID,
		EquipmentID: equipment.ID,
		UniqueID:    uuid.New(),
		TotalAmount: 1_000,
		Deposit:     100,
		Frequency:   FrequencyMonthly,
	})

	assert.NoError(t, err)
	assert.Equal(t, vendorID, contract.PayeeID)
	assert.Equal(t, PayeeVendor, contract.PayeeType)
	assert.Nil(t, contract.FunderOfferID)
	assert.Equal(t, uint8(1), contract.InstallmentCount)
	assert.Equal(t, uint8(1), contract.PaidInstallments)
	assert.Equal(t, uint64(100), contract.AmountPaid)
	assert.Equal(t, uint64(100), contract.Deposit)
	assert.Equal(t, testNow.Unix(), contract.StartDate)
	assert.Equal(t, testNow.Unix()+secondsPerMonth, contract.EndDate)
	assert.Equal(t, uint64(1), equipment.SoldQuantity)

	transferReq := mockTransfer.Calls[0].Arguments.Get(1).(treasury.TransferRequest)
	assert.Equal(t, borrowerID, transferReq.From)
	assert.Equal(t, uint64(100), transferReq.Amount)
	mockRepo.AssertExpectations(t)
	mockTransfer.AssertExpectations(t)
}

func TestCreateContractFunderPath(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	vendorID := uuid.New()
	borrowerID := uuid.New()
	funderID := uuid.New()
	equipment := vendorEquipment(vendorID, 10)
	equipment.FundedQuantity = 4
	equipment.Funders = []FunderOffer{{
		ID:              uuid.New(),
		EquipmentID:     equipment.ID,
		FunderID:        funderID,
		Quantity:        4,
		MinimumDeposit:  250,
		DurationSeconds: 2 * secondsPerMonth,
	}}

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetBorrower", mock.Anything, borrowerID).Return(&Borrower{ID: borrowerID}, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateEscrow", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateContract", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	contract, err := svc.CreateContract(context.Background(), CreateContractRequest{
		BorrowerID:  borrowerID,
		EquipmentID: equipment.ID,
		UniqueID:    uuid.New(),
		TotalAmount: 4_000,
		Deposit:     250,
		Frequency:   FrequencyMonthly,
		FunderID:    &funderID,
	})

	assert.NoError(t, err)
	assert.Equal(t, funderID, contract.PayeeID)
	assert.Equal(t, PayeeFunder, contract.PayeeType)
	assert.NotNil(t, contract.FunderOfferID)
	assert.Equal(t, uint8(2), contract.InstallmentCount)
	assert.Equal(t, uint64(1), equipment.FundedSoldQuantity)
	assert.Equal(t, uint64(0), equipment.SoldQuantity)
}

func TestCreateContractDepositBelowMinimumMutatesNothing(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 10)

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetBorrower", mock.Anything, borrowerID).Return(&Borrower{ID: borrowerID}, nil)

	_, err := svc.CreateContract(context.Background(), CreateContractRequest{
		BorrowerID:  borrowerID,
		EquipmentID: equipment.ID,
		UniqueID:    uuid.New(),
		TotalAmount: 1_000,
		Deposit:     50,
		Frequency:   FrequencyMonthly,
	})

	assert.ErrorIs(t, err, ErrDepositBelowMinimum)
	mockTransfer.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "SaveEquipment", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateContract", mock.Anything, mock.Anything)
}

func TestCreateContractOutOfStock(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 3)
	equipment.SoldQuantity = 3

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetBorrower", mock.Anything, borrowerID).Return(&Borrower{ID: borrowerID}, nil)

	_, err := svc.CreateContract(context.Background(), CreateContractRequest{
		BorrowerID:  borrowerID,
		EquipmentID: equipment.ID,
		UniqueID:    uuid.New(),
		TotalAmount: 1_000,
		Deposit:     100,
		Frequency:   FrequencyMonthly,
	})

	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestCreateContractTransferFailurePersistsNothing(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 10)

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetBorrower", mock.Anything, borrowerID).Return(&Borrower{ID: borrowerID}, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(errors.New("treasury unreachable"))

	_, err := svc.CreateContract(context.Background(), CreateContractRequest{
		BorrowerID:  borrowerID,
		EquipmentID: equipment.ID,
		UniqueID:    uuid.New(),
		TotalAmount: 1_000,
		Deposit:     100,
		Frequency:   FrequencyMonthly,
	})

	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, KindExternal, KindOf(err))
	mockRepo.AssertNotCalled(t, "CreateEscrow", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateContract", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "SaveEquipment", mock.Anything, mock.Anything)
}

func TestMakePaymentRejectsOverpaymentThenCompletes(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	contract := &Contract{
		ID:               uuid.New(),
		BorrowerID:       borrowerID,
		PayeeID:          uuid.New(),
		PayeeType:        PayeeVendor,
		TotalAmount:      1_000,
		AmountPaid:       900,
		Deposit:          100,
		StartDate:        testNow.Unix() - secondsPerWeek,
		LastPaymentDate:  testNow.Unix() - secondsPerDay,
		Frequency:        FrequencyDaily,
		PaidInstallments: 3,
	}

	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)

	_, err := svc.MakePayment(context.Background(), MakePaymentRequest{
		ContractID: contract.ID,
		BorrowerID: borrowerID,
		Amount:     150,
	})
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Equal(t, uint64(900), contract.AmountPaid)
	mockTransfer.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)

	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveContract", mock.Anything, contract).Return(nil)

	updated, err := svc.MakePayment(context.Background(), MakePaymentRequest{
		ContractID: contract.ID,
		BorrowerID: borrowerID,
		Amount:     100,
	})
	assert.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	assert.Equal(t, uint64(1_000), updated.AmountPaid)
	assert.Equal(t, uint8(4), updated.PaidInstallments)
	assert.Equal(t, int8(10), updated.CreditScoreDelta)
}

func TestMakePaymentZeroAmount(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	_, err := svc.MakePayment(context.Background(), MakePaymentRequest{
		ContractID: uuid.New(),
		BorrowerID: uuid.New(),
		Amount:     0,
	})
	assert.ErrorIs(t, err, ErrInvalidPaymentAmount)
	mockRepo.AssertNotCalled(t, "GetContract", mock.Anything, mock.Anything)
}

func TestMakePaymentCompletedContract(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	contract := &Contract{
		ID:          uuid.New(),
		BorrowerID:  borrowerID,
		TotalAmount: 1_000,
		AmountPaid:  1_000,
		IsCompleted: true,
	}
	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)

	_, err := svc.MakePayment(context.Background(), MakePaymentRequest{
		ContractID: contract.ID,
		BorrowerID: borrowerID,
		Amount:     10,
	})
	assert.ErrorIs(t, err, ErrContractCompleted)
}

func TestMakePaymentWrongBorrower(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	contract := &Contract{
		ID:          uuid.New(),
		BorrowerID:  uuid.New(),
		TotalAmount: 1_000,
	}
	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)

	_, err := svc.MakePayment(context.Background(), MakePaymentRequest{
		ContractID: contract.ID,
		BorrowerID: uuid.New(),
		Amount:     10,
	})
	assert.ErrorIs(t, err, ErrUnauthorizedBuyer)
	assert.Equal(t, KindAuthorization, KindOf(err))
}

func TestConfirmDeliveryReleasesExactlyOnce(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	payeeID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 5)
	escrow := &Escrow{
		ID:          uuid.New(),
		EquipmentID: equipment.ID,
		DepositorID: borrowerID,
		VendorID:    equipment.VendorID,
		Amount:      100,
	}
	contract := &Contract{
		ID:          uuid.New(),
		BorrowerID:  borrowerID,
		PayeeID:     payeeID,
		EquipmentID: equipment.ID,
		EscrowID:    escrow.ID,
	}

	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetEscrow", mock.Anything, escrow.ID).Return(escrow, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil).Once()
	mockRepo.On("SaveEscrow", mock.Anything, escrow).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryRequest{
		ContractID:  contract.ID,
		ConfirmerID: borrowerID,
	})
	assert.NoError(t, err)
	assert.True(t, escrow.IsReleased)
	assert.Equal(t, DeliveryStatusDelivered, equipment.DeliveryStatus)

	transferReq := mockTransfer.Calls[0].Arguments.Get(1).(treasury.TransferRequest)
	assert.Equal(t, payeeID, transferReq.To)
	assert.Equal(t, uint64(100), transferReq.Amount)

	err = svc.ConfirmDelivery(context.Background(), ConfirmDeliveryRequest{
		ContractID:  contract.ID,
		ConfirmerID: borrowerID,
	})
	assert.ErrorIs(t, err, ErrInvalidDeliveryStatus)
	mockTransfer.AssertNumberOfCalls(t, "Transfer", 1)
}

func TestConfirmDeliveryReleasedEscrow(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	borrowerID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 5)
	escrow := &Escrow{ID: uuid.New(), EquipmentID: equipment.ID, Amount: 100, IsReleased: true}
	contract := &Contract{
		ID:          uuid.New(),
		BorrowerID:  borrowerID,
		EquipmentID: equipment.ID,
		EscrowID:    escrow.ID,
	}

	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetEscrow", mock.Anything, escrow.ID).Return(escrow, nil)

	err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryRequest{
		ContractID:  contract.ID,
		ConfirmerID: borrowerID,
	})
	assert.ErrorIs(t, err, ErrFundsAlreadyReleased)
	mockTransfer.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestConfirmFundedDeliveryPayeeResolution(t *testing.T) {
	funderID := uuid.New()
	borrowerID := uuid.New()
	vendorID := uuid.New()

	cases := []struct {
		name          string
		confirmer     uuid.UUID
		offerDeposit  uint64
		offerDuration int64
		wantPayee     uuid.UUID
	}{
		{"funder confirms pays vendor", funderID, 100, secondsPerMonth, vendorID},
		{"borrower confirms terms pays funder", borrowerID, 100, secondsPerMonth, funderID},
		{"borrower confirms buyout pays vendor", borrowerID, 0, 0, vendorID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			mockTransfer := new(MockTransferClient)
			svc := newTestService(mockRepo, mockTransfer, nil, testNow)

			equipment := vendorEquipment(vendorID, 5)
			escrow := &Escrow{
				ID:          uuid.New(),
				EquipmentID: equipment.ID,
				DepositorID: funderID,
				VendorID:    vendorID,
				Amount:      5_000,
			}
			offer := &FunderOffer{
				ID:              uuid.New(),
				EquipmentID:     equipment.ID,
				FunderID:        funderID,
				BorrowerID:      &borrowerID,
				MinimumDeposit:  tc.offerDeposit,
				DurationSeconds: tc.offerDuration,
			}

			mockRepo.On("GetEscrow", mock.Anything, escrow.ID).Return(escrow, nil)
			mockRepo.On("GetFunderOfferByEscrow", mock.Anything, escrow.ID).Return(offer, nil)
			mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
			mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
			mockRepo.On("SaveEscrow", mock.Anything, escrow).Return(nil)
			mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

			err := svc.ConfirmFundedDelivery(context.Background(), ConfirmFundedDeliveryRequest{
				EscrowID:    escrow.ID,
				ConfirmerID: tc.confirmer,
			})
			assert.NoError(t, err)

			transferReq := mockTransfer.Calls[0].Arguments.Get(1).(treasury.TransferRequest)
			assert.Equal(t, tc.wantPayee, transferReq.To)
			assert.Equal(t, uint64(5_000), transferReq.Amount)
			assert.True(t, escrow.IsReleased)
		})
	}
}

func TestConfirmFundedDeliveryUnauthorizedConfirmer(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	equipment := vendorEquipment(uuid.New(), 5)
	escrow := &Escrow{ID: uuid.New(), EquipmentID: equipment.ID, DepositorID: uuid.New(), Amount: 500}
	offer := &FunderOffer{ID: uuid.New(), EquipmentID: equipment.ID, FunderID: escrow.DepositorID}

	mockRepo.On("GetEscrow", mock.Anything, escrow.ID).Return(escrow, nil)
	mockRepo.On("GetFunderOfferByEscrow", mock.Anything, escrow.ID).Return(offer, nil)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)

	err := svc.ConfirmFundedDelivery(context.Background(), ConfirmFundedDeliveryRequest{
		EscrowID:    escrow.ID,
		ConfirmerID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	mockTransfer.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestFundEquipmentPaysVendorUpfront(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	funderID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 10)

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateFunderOffer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	updated, err := svc.FundEquipment(context.Background(), FundEquipmentRequest{
		FunderID:        funderID,
		EquipmentID:     equipment.ID,
		Quantity:        4,
		MinimumDeposit:  200,
		DurationSeconds: 2 * secondsPerMonth,
		FunderPrice:     1_100,
	})

	assert.NoError(t, err)
	assert.Equal(t, uint64(4), updated.FundedQuantity)
	assert.Equal(t, EquipmentStatusFunded, updated.Status)
	assert.Equal(t, PreferenceVendorOnly, updated.PaymentPreference)
	assert.Len(t, updated.Funders, 1)
	assert.Equal(t, funderID, updated.Funders[0].FunderID)

	transferReq := mockTransfer.Calls[0].Arguments.Get(1).(treasury.TransferRequest)
	assert.Equal(t, equipment.VendorID, transferReq.To)
	assert.Equal(t, uint64(4_000), transferReq.Amount)
}

func TestFundEquipmentRejectsSecondBuyout(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	equipment := vendorEquipment(uuid.New(), 10)
	equipment.FundedQuantity = 2
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)

	_, err := svc.FundEquipment(context.Background(), FundEquipmentRequest{
		FunderID:    uuid.New(),
		EquipmentID: equipment.ID,
		Quantity:    1,
		FunderPrice: 1_000,
	})
	assert.ErrorIs(t, err, ErrInvalidPaymentPreference)
	mockTransfer.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestFundEquipmentPriceBelowListing(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	equipment := vendorEquipment(uuid.New(), 10)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)

	_, err := svc.FundEquipment(context.Background(), FundEquipmentRequest{
		FunderID:    uuid.New(),
		EquipmentID: equipment.ID,
		Quantity:    1,
		FunderPrice: 999,
	})
	assert.ErrorIs(t, err, ErrInvalidFunderPrice)
}

func TestFundEquipmentForBorrowerEscrowsFullPayment(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	funderID := uuid.New()
	borrowerID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 10)

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateEscrow", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateFunderOffer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	updated, err := svc.FundEquipmentForBorrower(context.Background(), FundForBorrowerRequest{
		FunderID:        funderID,
		EquipmentID:     equipment.ID,
		BorrowerID:      borrowerID,
		UniqueID:        uuid.New(),
		Quantity:        2,
		MinimumDeposit:  150,
		DurationSeconds: secondsPerMonth,
	})

	assert.NoError(t, err)
	assert.Equal(t, EquipmentStatusReserved, updated.Status)
	assert.Equal(t, uint64(2), updated.FundedQuantity)
	assert.Len(t, updated.Funders, 1)
	assert.Equal(t, &borrowerID, updated.Funders[0].BorrowerID)
	assert.NotNil(t, updated.Funders[0].EscrowID)

	transferReq := mockTransfer.Calls[0].Arguments.Get(1).(treasury.TransferRequest)
	assert.Equal(t, funderID, transferReq.From)
	assert.Equal(t, uint64(2_000), transferReq.Amount)

	escrow := mockRepo.Calls[1].Arguments.Get(1).(*Escrow)
	assert.Equal(t, uint64(2_000), escrow.Amount)
	assert.Equal(t, funderID, escrow.DepositorID)
}

func TestFundEquipmentForListingStaysOnMarket(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	equipment := vendorEquipment(uuid.New(), 10)

	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateEscrow", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateFunderOffer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	updated, err := svc.FundEquipmentForListing(context.Background(), FundForListingRequest{
		FunderID:        uuid.New(),
		EquipmentID:     equipment.ID,
		UniqueID:        uuid.New(),
		Quantity:        3,
		MinimumDeposit:  100,
		DurationSeconds: secondsPerMonth,
	})

	assert.NoError(t, err)
	assert.Equal(t, EquipmentStatusFunded, updated.Status)
	assert.Nil(t, updated.Funders[0].BorrowerID)
}

func TestFundEquipmentInsufficientQuantity(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	svc := newTestService(mockRepo, mockTransfer, nil, testNow)

	equipment := vendorEquipment(uuid.New(), 5)
	equipment.SoldQuantity = 3
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)

	_, err := svc.FundEquipmentForListing(context.Background(), FundForListingRequest{
		FunderID:    uuid.New(),
		EquipmentID: equipment.ID,
		UniqueID:    uuid.New(),
		Quantity:    3,
	})
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	mockTransfer.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestUploadEquipmentRegistersAsset(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	mockAssets := new(MockAssetRegistry)
	svc := newTestService(mockRepo, mockTransfer, mockAssets, testNow)

	vendorID := uuid.New()
	assetID := uuid.New()
	mockAssets.On("CreateAsset", mock.Anything, mock.Anything).Return(assetID, nil)
	mockRepo.On("CreateEquipment", mock.Anything, mock.Anything).Return(nil)

	equipment, err := svc.UploadEquipment(context.Background(), UploadEquipmentRequest{
		VendorID:           vendorID,
		UniqueID:           uuid.New(),
		Name:               "Grain Dryer",
		URI:                "https://assets.example.com/grain-dryer.json",
		Price:              2_500,
		Quantity:           6,
		MinimumDeposit:     500,
		MaxDurationSeconds: 3 * secondsPerMonth,
	})

	assert.NoError(t, err)
	assert.Equal(t, assetID, equipment.AssetID)
	assert.Equal(t, EquipmentStatusAvailable, equipment.Status)
	assert.Equal(t, uint64(6), equipment.TotalQuantity)
	assert.Equal(t, PreferenceEither, equipment.PaymentPreference)
}

func TestUploadEquipmentValidation(t *testing.T) {
	mockRepo := new(MockRepository)
	mockAssets := new(MockAssetRegistry)
	svc := newTestService(mockRepo, new(MockTransferClient), mockAssets, testNow)

	base := UploadEquipmentRequest{
		VendorID:           uuid.New(),
		UniqueID:           uuid.New(),
		Name:               "Grain Dryer",
		URI:                "https://assets.example.com/grain-dryer.json",
		Price:              2_500,
		Quantity:           6,
		MinimumDeposit:     500,
		MaxDurationSeconds: 3 * secondsPerMonth,
	}

	tooLong := base
	tooLong.Name = "an equipment name that is well beyond the thirty-two character cap"
	_, err := svc.UploadEquipment(context.Background(), tooLong)
	assert.ErrorIs(t, err, ErrInvalidName)

	zeroPrice := base
	zeroPrice.Price = 0
	_, err = svc.UploadEquipment(context.Background(), zeroPrice)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	zeroQuantity := base
	zeroQuantity.Quantity = 0
	_, err = svc.UploadEquipment(context.Background(), zeroQuantity)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	mockAssets.AssertNotCalled(t, "CreateAsset", mock.Anything, mock.Anything)
}

func TestInitializeBorrowerRejectsDuplicate(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockTransferClient), nil, testNow)

	authorityID := uuid.New()
	mockRepo.On("GetBorrowerByAuthority", mock.Anything, authorityID).
		Return(&Borrower{ID: uuid.New(), AuthorityID: authorityID}, nil)

	_, err := svc.InitializeBorrower(context.Background(), authorityID)
	assert.ErrorIs(t, err, ErrBorrowerExists)
	mockRepo.AssertNotCalled(t, "CreateBorrower", mock.Anything, mock.Anything)
}

func TestInitializeBorrowerCreatesEmptyHistory(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockTransferClient), nil, testNow)

	authorityID := uuid.New()
	mockRepo.On("GetBorrowerByAuthority", mock.Anything, authorityID).Return(nil, ErrBorrowerNotFound)
	mockRepo.On("CreateBorrower", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateCreditScore", mock.Anything, mock.Anything).Return(nil)

	borrower, err := svc.InitializeBorrower(context.Background(), authorityID)
	assert.NoError(t, err)
	assert.Equal(t, authorityID, borrower.AuthorityID)
	assert.Equal(t, uint64(0), borrower.TotalRepayments)

	score := mockRepo.Calls[2].Arguments.Get(1).(*CreditScore)
	assert.Equal(t, borrower.ID, score.BorrowerID)
	assert.Equal(t, uint64(0), score.Score)

	// same authority derives the same borrower id
	again, err := svc.InitializeBorrower(context.Background(), authorityID)
	assert.NoError(t, err)
	assert.Equal(t, borrower.ID, again.ID)
}

func TestTrackRepaymentOnTimeAddsScaledPoints(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockTransferClient), nil, testNow)

	authorityID := uuid.New()
	borrower := &Borrower{ID: uuid.New(), AuthorityID: authorityID}
	contract := &Contract{
		ID:              uuid.New(),
		BorrowerID:      borrower.ID,
		LastPaymentDate: testNow.Unix() - secondsPerDay/2,
		Frequency:       FrequencyDaily,
	}
	score := &CreditScore{ID: uuid.New(), BorrowerID: borrower.ID, Score: 50}

	mockRepo.On("GetBorrowerByAuthority", mock.Anything, authorityID).Return(borrower, nil)
	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)
	mockRepo.On("GetCreditScoreByBorrower", mock.Anything, borrower.ID).Return(score, nil)
	mockRepo.On("SaveBorrower", mock.Anything, borrower).Return(nil)
	mockRepo.On("SaveCreditScore", mock.Anything, score).Return(nil)

	updated, err := svc.TrackRepayment(context.Background(), TrackRepaymentRequest{
		AuthorityID: authorityID,
		ContractID:  contract.ID,
		Amount:      2_500,
	})

	assert.NoError(t, err)
	assert.Equal(t, uint32(1), updated.OnTimePayments)
	assert.Equal(t, uint64(75), updated.Score) // 50 + 2500/100
	assert.Equal(t, uint64(2_500), borrower.TotalRepayments)
	assert.Equal(t, testNow.Unix(), borrower.LastRepaymentDate)
}

func TestTrackRepaymentLateScoreSaturatesAtZero(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockTransferClient), nil, testNow)

	authorityID := uuid.New()
	borrower := &Borrower{ID: uuid.New(), AuthorityID: authorityID}
	contract := &Contract{
		ID:              uuid.New(),
		BorrowerID:      borrower.ID,
		LastPaymentDate: testNow.Unix() - 3*secondsPerDay,
		Frequency:       FrequencyDaily,
	}
	score := &CreditScore{ID: uuid.New(), BorrowerID: borrower.ID, Score: 10}

	mockRepo.On("GetBorrowerByAuthority", mock.Anything, authorityID).Return(borrower, nil)
	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)
	mockRepo.On("GetCreditScoreByBorrower", mock.Anything, borrower.ID).Return(score, nil)
	mockRepo.On("SaveBorrower", mock.Anything, borrower).Return(nil)
	mockRepo.On("SaveCreditScore", mock.Anything, score).Return(nil)

	updated, err := svc.TrackRepayment(context.Background(), TrackRepaymentRequest{
		AuthorityID: authorityID,
		ContractID:  contract.ID,
		Amount:      5_000,
	})

	assert.NoError(t, err)
	assert.Equal(t, uint32(1), updated.LatePayments)
	assert.Equal(t, uint64(0), updated.Score)
}

func TestScanOverdueContractsRecordsDefaultOnce(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockTransferClient), nil, testNow)

	overdue := Contract{
		ID:              uuid.New(),
		BorrowerID:      uuid.New(),
		LastPaymentDate: testNow.Unix() - 10*secondsPerDay,
		Frequency:       FrequencyDaily,
	}
	current := Contract{
		ID:              uuid.New(),
		BorrowerID:      uuid.New(),
		LastPaymentDate: testNow.Unix() - secondsPerDay/2,
		Frequency:       FrequencyDaily,
	}
	alreadyDefaulted := Contract{
		ID:              uuid.New(),
		BorrowerID:      uuid.New(),
		LastPaymentDate: testNow.Unix() - 10*secondsPerDay,
		Frequency:       FrequencyDaily,
		IsDefaulted:     true,
	}
	score := &CreditScore{ID: uuid.New(), BorrowerID: overdue.BorrowerID}

	mockRepo.On("ListOpenContracts", mock.Anything).
		Return([]Contract{overdue, current, alreadyDefaulted}, nil)
	mockRepo.On("GetCreditScoreByBorrower", mock.Anything, overdue.BorrowerID).Return(score, nil)
	mockRepo.On("SaveContract", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveCreditScore", mock.Anything, score).Return(nil)

	defaulted, err := svc.ScanOverdueContracts(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, defaulted)
	assert.Equal(t, uint32(1), score.Defaults)

	saved := mockRepo.Calls[2].Arguments.Get(1).(*Contract)
	assert.Equal(t, overdue.ID, saved.ID)
	assert.True(t, saved.IsDefaulted)
}

// recordingSink captures published events for assertions.
type recordingSink struct {
	events []Event
}

func (r *recordingSink) Publish(event Event) {
	r.events = append(r.events, event)
}

func newTestServiceWithSink(repo Repository, transfer treasury.TransferClient, sink EventSink, now time.Time) Service {
	cfg := DefaultConfig()
	cfg.StablecoinMint = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return NewService(repo, transfer, fixedClock{now: now}, nil, sink, zap.NewNop(), cfg)
}

func TestFundEquipmentEventCarriesClockTimestamp(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	sink := &recordingSink{}
	svc := newTestServiceWithSink(mockRepo, mockTransfer, sink, testNow)

	equipment := vendorEquipment(uuid.New(), 10)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateFunderOffer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	_, err := svc.FundEquipment(context.Background(), FundEquipmentRequest{
		FunderID:    uuid.New(),
		EquipmentID: equipment.ID,
		Quantity:    2,
		FunderPrice: 1_000,
	})
	assert.NoError(t, err)

	assert.Len(t, sink.events, 1)
	assert.Equal(t, EventEquipmentFunded, sink.events[0].Type)
	assert.Equal(t, testNow.Unix(), sink.events[0].At)
}

func TestEscrowedFundingEventCarriesClockTimestamp(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	sink := &recordingSink{}
	svc := newTestServiceWithSink(mockRepo, mockTransfer, sink, testNow)

	equipment := vendorEquipment(uuid.New(), 10)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateEscrow", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateFunderOffer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	_, err := svc.FundEquipmentForBorrower(context.Background(), FundForBorrowerRequest{
		FunderID:    uuid.New(),
		EquipmentID: equipment.ID,
		BorrowerID:  uuid.New(),
		UniqueID:    uuid.New(),
		Quantity:    1,
	})
	assert.NoError(t, err)

	assert.Len(t, sink.events, 1)
	assert.Equal(t, EventEquipmentFunded, sink.events[0].Type)
	assert.Equal(t, testNow.Unix(), sink.events[0].At)
}

func TestDeliveryConfirmationEventCarriesClockTimestamp(t *testing.T) {
	mockRepo := new(MockRepository)
	mockTransfer := new(MockTransferClient)
	sink := &recordingSink{}
	svc := newTestServiceWithSink(mockRepo, mockTransfer, sink, testNow)

	borrowerID := uuid.New()
	equipment := vendorEquipment(uuid.New(), 5)
	escrow := &Escrow{
		ID:          uuid.New(),
		EquipmentID: equipment.ID,
		DepositorID: borrowerID,
		VendorID:    equipment.VendorID,
		Amount:      100,
	}
	contract := &Contract{
		ID:          uuid.New(),
		BorrowerID:  borrowerID,
		PayeeID:     equipment.VendorID,
		EquipmentID: equipment.ID,
		EscrowID:    escrow.ID,
	}

	mockRepo.On("GetContract", mock.Anything, contract.ID).Return(contract, nil)
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockRepo.On("GetEscrow", mock.Anything, escrow.ID).Return(escrow, nil)
	mockTransfer.On("Transfer", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("SaveEscrow", mock.Anything, escrow).Return(nil)
	mockRepo.On("SaveEquipment", mock.Anything, equipment).Return(nil)

	err := svc.ConfirmDelivery(context.Background(), ConfirmDeliveryRequest{
		ContractID:  contract.ID,
		ConfirmerID: borrowerID,
	})
	assert.NoError(t, err)

	assert.Len(t, sink.events, 1)
	assert.Equal(t, EventDeliveryConfirmed, sink.events[0].Type)
	assert.Equal(t, testNow.Unix(), sink.events[0].At)
}

func TestVerifyEquipmentAsset(t *testing.T) {
	mockRepo := new(MockRepository)
	mockAssets := new(MockAssetRegistry)
	svc := newTestService(mockRepo, new(MockTransferClient), mockAssets, testNow)

	equipment := vendorEquipment(uuid.New(), 3)
	equipment.AssetID = uuid.New()
	mockRepo.On("GetEquipment", mock.Anything, equipment.ID).Return(equipment, nil)
	mockAssets.On("VerifyAsset", mock.Anything, equipment.AssetID).Return(true, nil)

	verified, err := svc.VerifyEquipmentAsset(context.Background(), equipment.ID)
	assert.NoError(t, err)
	assert.True(t, verified)

	missing := uuid.New()
	mockRepo.On("GetEquipment", mock.Anything, missing).Return(nil, ErrEquipmentNotFound)
	_, err = svc.VerifyEquipmentAsset(context.Background(), missing)
	assert.ErrorIs(t, err, ErrEquipmentNotFound)
}
