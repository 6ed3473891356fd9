package simulation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

func TestParseFrequency(t *testing.T) {
	tests := map[string]Frequency{
		"mensuelle":     Mensuelle,
		"Trimestrielle": Trimestrielle,
		"semestrielle":  Semestrielle,
		"semistrielle":  Semestrielle,
		" annuelle ":    Annuelle,
	}
	for in, want := range tests {
		got, err := ParseFrequency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFrequency("hebdomadaire")
	assert.ErrorIs(t, err, ErrUnknownFrequency)
}

func TestFrequency_Months(t *testing.T) {
	assert.Equal(t, 1, Mensuelle.Months())
	assert.Equal(t, 3, Trimestrielle.Months())
	assert.Equal(t, 6, Semestrielle.Months())
	assert.Equal(t, 12, Annuelle.Months())
	assert.Equal(t, 0, FrequencyUnknown.Months())
}

func validInputs() Inputs {
	return Inputs{
		MontantInitial: decimal.NewFromInt(1000),
		Contribution:   decimal.NewFromInt(100),
		Frequence:      Mensuelle,
		DateDebut:      2015,
		DateFin:        2020,
		Instrument:     market.Instrument{AssetClass: market.ETF, Ticker: "ACWI"},
	}
}

func TestInputs_Validate(t *testing.T) {
	require.NoError(t, validInputs().Validate())

	tests := []struct {
		name   string
		mutate func(in *Inputs)
		want   error
	}{
		{"end equals start", func(in *Inputs) { in.DateFin = in.DateDebut }, ErrInvalidDateRange},
		{"end before start", func(in *Inputs) { in.DateFin = 2010 }, ErrInvalidDateRange},
		{"too early", func(in *Inputs) { in.DateDebut = 1949 }, ErrYearOutOfRange},
		{"negative initial", func(in *Inputs) { in.MontantInitial = decimal.NewFromInt(-1) }, ErrNegativeAmount},
		{"negative contribution", func(in *Inputs) { in.Contribution = decimal.NewFromInt(-5) }, ErrNegativeAmount},
		{"no frequency", func(in *Inputs) { in.Frequence = FrequencyUnknown }, ErrUnknownFrequency},
		{"no instrument", func(in *Inputs) { in.Instrument = market.Instrument{} }, ErrNoInstrument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInputs()
			tt.mutate(&in)

			err := in.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		})
	}
}

func TestInputs_JSON(t *testing.T) {
	b, err := json.Marshal(validInputs())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "mensuelle", m["frequence"])
	assert.Equal(t, "etf", m["actif"])
	assert.Equal(t, "ACWI", m["ticker"])
}

func TestValuationPoint_JSONRoundTrip(t *testing.T) {
	p := ValuationPoint{
		Date:     time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		Value:    1234.5678,
		Flow:     100,
		Invested: 1200,
	}

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2020-03-01","value":1234.57,"flux":100,"investi":1200}`, string(b))

	var back ValuationPoint
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Date.Equal(p.Date))
	assert.Equal(t, 1234.57, back.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"03/2020"}`), &back))
}

func TestTotalAmount(t *testing.T) {
	events := []ContributionEvent{
		{Amount: decimal.RequireFromString("0.1")},
		{Amount: decimal.RequireFromString("0.2")},
	}
	assert.True(t, TotalAmount(events).Equal(decimal.RequireFromString("0.3")))
}
