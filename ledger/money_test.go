package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-engine/ledger"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1000", want: "1000.00"},
		{in: "0.01", want: "0.01"},
		{in: "-12.5", want: "-12.50"},
		{in: "1.005", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ledger.ParseMoney("amount", tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ledger.FormatMoney(got))
		})
	}
}

func TestCanHold(t *testing.T) {
	assert.True(t, ledger.CanHold(ledger.WalletChecking, ledger.MustMoney("0.00")))
	assert.False(t, ledger.CanHold(ledger.WalletChecking, ledger.MustMoney("-0.01")))
	assert.True(t, ledger.CanHold(ledger.WalletCredit, ledger.MustMoney("-0.01")))
	assert.False(t, ledger.CanHold("brokerage", ledger.MustMoney("-5")))
}

func TestErrorHelpers(t *testing.T) {
	nf := &ledger.NotFoundError{Entity: "wallet"}
	assert.True(t, ledger.IsNotFound(nf))
	assert.Equal(t, "wallet not found or not owned by user", nf.Error())

	assert.True(t, ledger.IsClientError(ledger.Invalid("name", "required")))
	assert.True(t, ledger.IsClientError(&ledger.InsufficientFundsError{}))
	assert.False(t, ledger.IsClientError(ledger.ErrConcurrentModification))
	assert.True(t, ledger.IsRetryable(ledger.ErrConcurrentModification))
}
