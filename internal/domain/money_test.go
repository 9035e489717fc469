package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{in: "0", want: 0},
		{in: "123", want: 12300},
		{in: "123.4", want: 12340},
		{in: "123.45", want: 12345},
		{in: "0.05", want: 5},
		{in: "-1.50", want: -150},
		{in: " 250.50 ", want: 25050},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCents_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"-",
		".",
		"1.",
		".5",
		"1.-5",
		"1.+5",
		"+1.00",
		"--1",
		"1.234",
		"1e2",
		"1,00",
		"12a",
		"1. 5",
		"99999999999999999999",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCents(in)
			assert.Error(t, err)
		})
	}
}

func TestCents_JSON(t *testing.T) {
	data, err := json.Marshal(Cents(25050))
	require.NoError(t, err)
	assert.JSONEq(t, `"250.50"`, string(data))

	var c Cents
	require.NoError(t, json.Unmarshal([]byte(`"-0.07"`), &c))
	assert.Equal(t, Cents(-7), c)

	require.NoError(t, json.Unmarshal([]byte(`1999`), &c))
	assert.Equal(t, Cents(1999), c)

	assert.Error(t, json.Unmarshal([]byte(`"1.-5"`), &c))
}
