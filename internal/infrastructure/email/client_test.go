package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zurichjs/conference-go/internal/infrastructure/email/templates"
)

func TestNewServiceRequiresKey(t *testing.T) {
	require := require.New(t)

	_, err := NewService(Options{})
	require.ErrorIs(err, ErrNotConfigured)

	svc, err := NewService(Options{APIKey: "re_test", From: "tickets@zurichjs.com", FromName: "ZurichJS Conf"})
	require.NoError(err)
	require.NotNil(svc)
}

func TestDiscountCodeMessage(t *testing.T) {
	require := require.New(t)

	msg := DiscountCodeMessage("ada@example.com", templates.DiscountCodeEmailProps{
		Code:       "JSC-7QK2M9XZ",
		PercentOff: 10,
		ExpiresAt:  time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC),
		TicketsURL: "https://conf.zurichjs.com/tickets",
	})

	require.Equal("ada@example.com", msg.To)
	require.Equal("Your 10% ZurichJS Conf discount: JSC-7QK2M9XZ", msg.Subject)
	require.Contains(msg.HTML, "JSC-7QK2M9XZ")
	require.Contains(msg.HTML, "<!doctype html>")
}
