package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// =============================================================================
// Lenient numbers
// =============================================================================

// Number accepts what the web form sends: a JSON number, a numeric string
// ("1000", "1 000", "12,5"), "" or null. Set is false for the last two.
type Number struct {
	decimal.Decimal
	Set bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", s, err)
		}
		s = unquoted
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return nil
	}
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	n.Decimal, n.Set = d, true
	return nil
}

// Year returns n as a whole number, 0 when unset
func (n Number) Year(field string) (int, error) {
	if !n.Set {
		return 0, nil
	}
	if !n.Decimal.Equal(n.Decimal.Truncate(0)) {
		return 0, apperr.InvalidInput(nil, "%s doit être un nombre entier", field)
	}
	return int(n.IntPart()), nil
}

// Amount returns n, zero when unset
func (n Number) Amount() decimal.Decimal {
	if !n.Set {
		return decimal.Zero
	}
	return n.Decimal
}

// =============================================================================
// Requests
// =============================================================================

// simulateRequest is the /simulate body; /compare_acwi extends it
type simulateRequest struct {
	MontantInitial Number `json:"montant_initial"`
	Contribution   Number `json:"contribution"`
	Frequence      string `json:"frequence"`
	Duree          Number `json:"duree"`
	DateDebut      Number `json:"date_debut"`
	DateFin        Number `json:"date_fin"`
	Actif          string `json:"actif"`
	Ticker         string `json:"ticker"`
	FraisGestion   Number `json:"frais_gestion"`
}

// inputs resolves the instrument and converts the lenient fields.
// Range checks are left to simulation.Inputs.Validate.
func (r simulateRequest) inputs(u *market.Universe) (simulation.Inputs, error) {
	inst, err := u.Resolve(r.Actif, r.Ticker)
	if err != nil {
		return simulation.Inputs{}, err
	}

	freq := simulation.Mensuelle
	if strings.TrimSpace(r.Frequence) != "" {
		if freq, err = simulation.ParseFrequency(r.Frequence); err != nil {
			return simulation.Inputs{}, apperr.InvalidInput(err, "fréquence inconnue: %q (mensuelle, trimestrielle, semestrielle, annuelle)", r.Frequence)
		}
	}

	in := simulation.Inputs{
		MontantInitial: r.MontantInitial.Amount(),
		Contribution:   r.Contribution.Amount(),
		Frequence:      freq,
		FraisGestion:   r.FraisGestion.Amount().InexactFloat64(),
		Instrument:     inst,
	}
	if in.DateDebut, err = r.DateDebut.Year("date_debut"); err != nil {
		return in, err
	}
	if in.DateFin, err = r.DateFin.Year("date_fin"); err != nil {
		return in, err
	}
	if in.Duree, err = r.Duree.Year("duree"); err != nil {
		return in, err
	}
	return in, nil
}

type compareRequest struct {
	simulateRequest
	HistoriquePortefeuille []simulation.ValuationPoint `json:"historique_portefeuille"`
	Benchmark              string                      `json:"benchmark"`
}

// windowRequest is the body of /predict_returns and /compare_strategies
type windowRequest struct {
	Actif          string `json:"actif"`
	Ticker         string `json:"ticker"`
	DateDebut      Number `json:"date_debut"`
	DateFin        Number `json:"date_fin"`
	MontantInitial Number `json:"montant_initial"`
}

func (r windowRequest) window() (debut, fin int, err error) {
	if debut, err = r.DateDebut.Year("date_debut"); err != nil {
		return 0, 0, err
	}
	if fin, err = r.DateFin.Year("date_fin"); err != nil {
		return 0, 0, err
	}
	return debut, fin, nil
}

// round2 rounds a percent or currency value for display
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
