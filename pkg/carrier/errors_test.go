package carrier_test

import (
	"errors"
	"testing"

	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := carrier.NewError("dhl_de", carrier.KindRemote, "Invalid postal code")
	assert.Equal(t, "dhl_de remote error: Invalid postal code", err.Error())
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := carrier.NewError("dhl_de", carrier.KindTransport, "carrier unreachable").WithCause(cause)
	assert.Contains(t, err.Error(), "carrier unreachable")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := carrier.NewError("dhl_de", carrier.KindTransport, "carrier unreachable").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestError_Is(t *testing.T) {
	err1 := carrier.NewError("dhl_de", carrier.KindValidation, "no packages")
	err2 := carrier.NewError("other", carrier.KindValidation, "different message")

	// Same kind should match
	assert.True(t, errors.Is(err1, err2))
}

func TestError_IsNot(t *testing.T) {
	err1 := carrier.NewError("dhl_de", carrier.KindValidation, "no packages")
	err2 := carrier.NewError("dhl_de", carrier.KindRemote, "rejected")

	// Different kinds should not match
	assert.False(t, errors.Is(err1, err2))
}

func TestError_WithStatusCode(t *testing.T) {
	err := carrier.NewError("dhl_de", carrier.KindAuth, "invalid credentials").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestError_SentinelCause(t *testing.T) {
	err := carrier.NewError("dhl_de", carrier.KindValidation, "shipment already labeled").
		WithCause(carrier.ErrAlreadyLabeled)
	assert.True(t, errors.Is(err, carrier.ErrAlreadyLabeled))
}

func TestErrKind(t *testing.T) {
	err := carrier.NewError("dhl_de", carrier.KindDownload, "label fetch failed")
	assert.Equal(t, carrier.KindDownload, carrier.ErrKind(err))
}

func TestErrKind_Wrapped(t *testing.T) {
	inner := carrier.NewError("dhl_de", carrier.KindAuth, "invalid credentials")
	assert.Equal(t, carrier.KindAuth, carrier.ErrKind(inner))
}

func TestErrKind_NotCarrierError(t *testing.T) {
	assert.Equal(t, carrier.Kind(""), carrier.ErrKind(errors.New("plain error")))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no packages", carrier.ErrNoPackages},
		{"missing shipper address", carrier.ErrMissingShipperAddress},
		{"already labeled", carrier.ErrAlreadyLabeled},
		{"wrong carrier", carrier.ErrWrongCarrier},
		{"not shippable", carrier.ErrNotShippable},
		{"invalid credentials", carrier.ErrInvalidCredentials},
		{"piece count mismatch", carrier.ErrPieceCountMismatch},
		{"carrier not found", carrier.ErrCarrierNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
