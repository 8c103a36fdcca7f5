package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
)

type reviewBody struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":4,"comment":"hot"}`))
	var body reviewBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 4, body.Rating)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":9}`))
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"rating": "must be less than or equal to 5"}, typed.Details())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":3,"extra":true}`))
	assert.Error(t, DecodeJSONBody(req, &body), "unknown fields are rejected")
}

type lineBody struct {
	ProductID string          `json:"product_id" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"amount"`
	Note      string          `json:"note" validate:"max=4"`
}

func TestDecodeJSONBodyAmount(t *testing.T) {
	var body lineBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"lassi","unit_price":"40.50"}`))
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.True(t, body.UnitPrice.Equal(decimal.RequireFromString("40.5")))

	var free lineBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"water","unit_price":"0"}`))
	require.NoError(t, DecodeJSONBody(req, &free), "zero is a valid amount")
	assert.True(t, free.UnitPrice.IsZero())

	var bad lineBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unit_price":"-0.5","note":"too long"}`))
	err := DecodeJSONBody(req, &bad)
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"product_id": "is required",
		"unit_price": "must not be negative",
		"note":       "must be at most 4 characters",
	}, pkgerrors.As(err).Details())
}

func TestDecodeJSONBodyRejectsMalformedEnvelopes(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"empty":    {body: "", message: "request body required"},
		"trailing": {body: `{"rating":3}{"rating":4}`, message: "request body must hold a single JSON object"},
		"oversize": {body: `{"comment":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, message: "request body too large"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var body reviewBody
			err := DecodeJSONBody(req, &body)
			typed := pkgerrors.As(err)
			if typed == nil {
				t.Fatalf("expected typed error, got %v", err)
			}
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tc.message, typed.Message())
		})
	}
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&unread=true", nil)
	limit, err := ParseQueryInt(req, "limit", 10, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	unread, err := ParseQueryBool(req, "unread")
	require.NoError(t, err)
	assert.True(t, unread)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500&unread=maybe", nil)
	_, err = ParseQueryInt(req, "limit", 10, 1, 50)
	assert.Error(t, err)
	_, err = ParseQueryBool(req, "unread")
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 0))
	assert.Equal(t, "ভাল", SanitizeString("ভালো খাবার", 3))
}
