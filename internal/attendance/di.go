package attendance

import (
	"github.com/foxseedlab/attendance/internal/config"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Tracker, error) {
		store := do.MustInvoke[repository.Store](i)
		recorder := do.MustInvoke[Recorder](i)
		return NewTracker(store, recorder), nil
	})
	do.Provide(injector, func(i do.Injector) (*Views, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[repository.Store](i)
		return NewViews(store, cfg.SessionsDefaultLimit, cfg.SessionsMaxLimit), nil
	})
}
