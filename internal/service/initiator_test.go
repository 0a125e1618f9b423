package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ticketing-payments/internal/core/domain"
	"ticketing-payments/internal/core/ports"
	"ticketing-payments/internal/core/ports/mocks"
	"ticketing-payments/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// portsInitiateReq builds a minimal gateway initiate request.
func portsInitiateReq(reference string) ports.GatewayInitiateRequest {
	return ports.GatewayInitiateRequest{
		Reference:     reference,
		Amount:        decimal.NewFromInt(25),
		Currency:      "USD",
		CustomerEmail: "dana@example.com",
		Description:   "Ticket for Conference 2026",
	}
}

type initiatorTestDeps struct {
	svc       *InitiatorImpl
	repo      *mocks.MockPaymentRepository
	eventRepo *mocks.MockEventRepository
	gateway   *mocks.MockGateway
	sandbox   *mocks.MockGateway
	ctrl      *gomock.Controller
}

func setupInitiator(t *testing.T, allowTestMode bool) *initiatorTestDeps {
	ctrl := gomock.NewController(t)
	d := &initiatorTestDeps{
		repo:      mocks.NewMockPaymentRepository(ctrl),
		eventRepo: mocks.NewMockEventRepository(ctrl),
		gateway:   mocks.NewMockGateway(ctrl),
		sandbox:   mocks.NewMockGateway(ctrl),
		ctrl:      ctrl,
	}
	d.svc = NewInitiator(d.repo, d.eventRepo, d.gateway, d.sandbox, allowTestMode, zerolog.Nop())
	return d
}

func initiateReq() ports.InitiateRequest {
	return ports.InitiateRequest{
		EventID:       "conf-2026",
		Amount:        decimal.NewFromInt(25),
		Currency:      "USD",
		CustomerEmail: "dana@example.com",
		CustomerName:  "Dana",
	}
}

func TestMobileMethodForPhone(t *testing.T) {
	tests := []struct {
		phone  string
		method string
		ok     bool
	}{
		{"0771234567", "ecocash", true},
		{"0781234567", "ecocash", true},
		{"0711234567", "onemoney", true},
		{"0731234567", "telecash", true},
		{"+263771234567", "ecocash", true},
		{"771234567", "ecocash", true},
		{"077 123 4567", "ecocash", true},
		{"0741234567", "", false},
		{"09", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		method, ok := MobileMethodForPhone(tt.phone)
		assert.Equal(t, tt.ok, ok, "phone %q", tt.phone)
		assert.Equal(t, tt.method, method, "phone %q", tt.phone)
	}
}

func TestInitiator_RedirectFlow(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)
	d.gateway.EXPECT().
		InitiateRedirect(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.GatewayInitiateRequest) (*ports.GatewayHandles, error) {
			assert.True(t, strings.HasPrefix(req.Reference, "conf-2026-"))
			assert.Equal(t, "dana@example.com", req.CustomerEmail)
			return &ports.GatewayHandles{
				PollHandle:  "poll-url",
				RedirectURL: "https://gateway.example.com/pay/abc",
			}, nil
		})
	d.repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *domain.PaymentRecord) error {
			assert.Equal(t, domain.PaymentStatusCreated, rec.Status)
			assert.Equal(t, "poll-url", rec.PollHandle)
			assert.False(t, rec.IsTestMode)
			return nil
		})

	result, err := d.svc.Initiate(context.Background(), initiateReq())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Reference, "conf-2026-"))
	assert.Equal(t, "https://gateway.example.com/pay/abc", result.RedirectURL)
	assert.Empty(t, result.Instructions)
}

func TestInitiator_MobileFlow(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	req := initiateReq()
	req.Phone = "0771234567"

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)
	d.gateway.EXPECT().
		InitiateMobile(gomock.Any(), gomock.Any(), "0771234567", "ecocash").
		Return(&ports.GatewayHandles{
			PollHandle:   "poll-url",
			Instructions: "Confirm the prompt on your phone",
		}, nil)
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	result, err := d.svc.Initiate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Confirm the prompt on your phone", result.Instructions)
	assert.Empty(t, result.RedirectURL)
}

func TestInitiator_UnsupportedPhonePrefix(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	req := initiateReq()
	req.Phone = "0741234567"

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)

	_, err := d.svc.Initiate(context.Background(), req)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestInitiator_Validation(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	bad := initiateReq()
	bad.Amount = decimal.Zero
	_, err := d.svc.Initiate(context.Background(), bad)
	require.Error(t, err)

	bad = initiateReq()
	bad.CustomerEmail = ""
	_, err = d.svc.Initiate(context.Background(), bad)
	require.Error(t, err)

	bad = initiateReq()
	bad.EventID = ""
	_, err = d.svc.Initiate(context.Background(), bad)
	require.Error(t, err)
}

func TestInitiator_EventNotFound(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(nil, nil)

	_, err := d.svc.Initiate(context.Background(), initiateReq())
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestInitiator_TestModeDisabled(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	req := initiateReq()
	req.TestMode = true
	req.TestBehavior = domain.TestBehaviorImmediateOK

	_, err := d.svc.Initiate(context.Background(), req)
	require.Error(t, err)
}

func TestInitiator_TestModeUsesSandbox(t *testing.T) {
	d := setupInitiator(t, true)
	defer d.ctrl.Finish()

	req := initiateReq()
	req.TestMode = true
	req.TestBehavior = domain.TestBehaviorDelayedOK

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)
	d.sandbox.EXPECT().
		InitiateRedirect(gomock.Any(), gomock.Any()).
		Return(&ports.GatewayHandles{PollHandle: "simulated:ref"}, nil)
	d.repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *domain.PaymentRecord) error {
			assert.True(t, rec.IsTestMode)
			assert.Equal(t, domain.TestBehaviorDelayedOK, rec.TestBehavior)
			return nil
		})

	result, err := d.svc.Initiate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsTestMode)
}

func TestInitiator_UnknownTestBehavior(t *testing.T) {
	d := setupInitiator(t, true)
	defer d.ctrl.Finish()

	req := initiateReq()
	req.TestMode = true
	req.TestBehavior = domain.TestBehavior("explode")

	_, err := d.svc.Initiate(context.Background(), req)
	require.Error(t, err)
}

func TestInitiator_GatewayFailureLeavesNoRecord(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)
	d.gateway.EXPECT().
		InitiateRedirect(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))
	// No Create expectation: nothing must be persisted.

	_, err := d.svc.Initiate(context.Background(), initiateReq())
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 502, appErr.HTTPStatus)
}

func TestInitiator_GatewayRejectionPassesThrough(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)
	d.gateway.EXPECT().
		InitiateRedirect(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrGatewayRejected("invalid integration id"))

	_, err := d.svc.Initiate(context.Background(), initiateReq())
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "invalid integration id")
}

func TestInitiator_DuplicateReference(t *testing.T) {
	d := setupInitiator(t, false)
	defer d.ctrl.Finish()

	d.eventRepo.EXPECT().GetByID(gomock.Any(), "conf-2026").Return(openEvent("conf-2026"), nil)
	d.gateway.EXPECT().
		InitiateRedirect(gomock.Any(), gomock.Any()).
		Return(&ports.GatewayHandles{PollHandle: "poll-url"}, nil)
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(ports.ErrDuplicateReference)

	_, err := d.svc.Initiate(context.Background(), initiateReq())
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.HTTPStatus)
}
