package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDiscountRemaining(t *testing.T) {
	require := require.New(t)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	d := Discount{Code: "JSC-ABCDEFGH", PercentOff: 10, ExpiresAt: now.Add(90*time.Second + 400*time.Millisecond)}

	require.False(d.Expired(now))
	require.Equal(90, d.RemainingSeconds(now))
	require.True(d.Expired(d.ExpiresAt))
	require.Equal(0, d.RemainingSeconds(now.Add(time.Hour)))
}

func TestDiscountApply(t *testing.T) {
	require := require.New(t)

	d := Discount{PercentOff: 15}
	got := d.Apply(decimal.RequireFromString("249.00"))
	require.True(decimal.RequireFromString("211.65").Equal(got), got.String())

	d.PercentOff = 100
	require.True(d.Apply(decimal.NewFromInt(99)).IsZero())
}

func TestDiscountValidate(t *testing.T) {
	require := require.New(t)

	now := time.Now()
	require.NoError(Discount{Code: "JSC-1", PercentOff: 1, ExpiresAt: now}.Validate())
	require.Error(Discount{Code: " ", PercentOff: 10, ExpiresAt: now}.Validate())
	require.Error(Discount{Code: "JSC-1", PercentOff: 0, ExpiresAt: now}.Validate())
	require.Error(Discount{Code: "JSC-1", PercentOff: 101, ExpiresAt: now}.Validate())
	require.Error(Discount{Code: "JSC-1", PercentOff: 10}.Validate())
}

func TestStatusDiscount(t *testing.T) {
	require := require.New(t)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	d := Discount{Code: "JSC-ABCDEFGH", PercentOff: 12, ExpiresAt: now.Add(time.Hour)}

	got, ok := NewStatus(d).Discount(now)
	require.True(ok)
	require.Equal(d, got)

	_, ok = NewStatus(d).Discount(now.Add(2 * time.Hour))
	require.False(ok)

	_, ok = InactiveStatus.Discount(now)
	require.False(ok)

	broken := NewStatus(d)
	broken.PercentOff = 0
	_, ok = broken.Discount(now)
	require.False(ok)
}

func TestUTMFromRawQuery(t *testing.T) {
	require := require.New(t)

	u := UTMFromRawQuery("?utm_source=Offline&utm_medium=QR_Code&utm_campaign=business_card_zurich&x=1")
	require.Equal(UTMParams{Source: "Offline", Medium: "QR_Code", Campaign: "business_card_zurich"}, u)
	require.True(u.Complete())
	require.Equal("utm:Offline/QR_Code/business_card_zurich", u.Tag())

	require.False(UTMFromRawQuery("utm_source=offline").Complete())
	require.Equal(UTMParams{}, UTMFromRawQuery("%zz"))
}
