package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Title    string  `validate:"required,min=2"`
	Price    float64 `validate:"gt=0"`
	ImageURL string  `validate:"required,url"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Title: "Bread", Price: 1, ImageURL: "https://x.io/a.png"}))
}

func TestStruct_ReportsSnakeCaseField(t *testing.T) {
	err := Struct(sample{Title: "Bread", Price: 1, ImageURL: "nope"})
	var verr *Error
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "image_url", verr.Field)
	assert.Equal(t, "image_url must be a valid URL", verr.Message)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestStruct_PositiveNumber(t *testing.T) {
	err := Struct(sample{Title: "Bread", Price: 0, ImageURL: "https://x.io/a.png"})
	assert.EqualError(t, err, "price must be a positive number")
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("listing_id", "9b2f7a52-1c1e-4c8f-9a59-6f0f1f0d2b11", "required,uuid"))
	err := Var("listing_id", "abc", "required,uuid")
	assert.EqualError(t, err, "listing_id must be a valid UUID")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSnake(t *testing.T) {
	cases := map[string]string{
		"ImageURL":  "image_url",
		"Title":     "title",
		"SellerID":  "seller_id",
		"ExpiresOn": "expires_on",
	}
	for in, want := range cases {
		assert.Equal(t, want, snake(in))
	}
}
