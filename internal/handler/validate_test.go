package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidPrice(t *testing.T) {
	tests := []struct {
		price string
		want  bool
	}{
		{price: "0", want: true},
		{price: "19.99", want: true},
		{price: "1.500", want: true},
		{price: "999999999.99", want: true},
		{price: "1000000000", want: false},
		{price: "0.001", want: false},
		{price: "1e-40", want: false},
		{price: "1e40", want: false},
		{price: "1234567890123456789012345678901234567.5", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.Equal(t, tt.want, validPrice(decimal.RequireFromString(tt.price)))
		})
	}
}
