package simulation

import (
	"time"

	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// ResolveWindow fills date_debut/date_fin from duree (years):
//   - no dates: the window ends in the current year
//   - only date_debut: the window ends duree years later
//
// Explicit dates always win over duree.
func ResolveWindow(in simulation.Inputs, now time.Time) (simulation.Inputs, error) {
	if in.Duree < 0 {
		return in, apperr.InvalidInput(simulation.ErrInvalidDateRange, "duree doit être positive")
	}

	switch {
	case in.DateDebut != 0 && in.DateFin != 0:
	case in.Duree == 0:
		if in.DateDebut == 0 || in.DateFin == 0 {
			return in, apperr.InvalidInput(simulation.ErrInvalidDateRange, "date_debut et date_fin, ou duree, sont requis")
		}
	case in.DateDebut != 0:
		in.DateFin = in.DateDebut + in.Duree
	case in.DateFin != 0:
		in.DateDebut = in.DateFin - in.Duree
	default:
		in.DateFin = now.Year()
		in.DateDebut = in.DateFin - in.Duree
	}

	if in.Duree == 0 {
		in.Duree = in.DateFin - in.DateDebut
	}
	return in, nil
}
