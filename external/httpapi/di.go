package httpapi

import (
	"net/http"

	"github.com/foxseedlab/attendance/external/metrics"
	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/foxseedlab/attendance/internal/config"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		return NewHandler(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[repository.Store](i),
			do.MustInvoke[*attendance.Tracker](i),
			do.MustInvoke[*attendance.Views](i),
			do.MustInvoke[*metrics.Metrics](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*http.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewServer(cfg, NewRouter(do.MustInvoke[*Handler](i))), nil
	})
}
