package handlers

import (
	"html/template"
	"time"

	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

// Africa/Douala for all display formatting
var tzDouala *time.Location

func init() {
	loc, err := time.LoadLocation("Africa/Douala")
	if err != nil {
		// no tzdata on the host; WAT has no DST
		tzDouala = time.FixedZone("WAT", 3600)
		return
	}
	tzDouala = loc
}

// "02/01/2006"
func fmtDate(d time.Time) string {
	return d.In(tzDouala).Format("02/01/2006")
}

// "02/01/2006 à 15:04"
func fmtDateTime(d time.Time) string {
	return d.In(tzDouala).Format("02/01/2006 à 15:04")
}

// Funcs is the FuncMap the layouts and pages expect.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"year":      func() string { return time.Now().In(tzDouala).Format("2006") },
		"fdate":     fmtDate,
		"fdatetime": fmtDateTime,
		"kb":        func(n int64) int64 { return (n + 1023) / 1024 },
		"form": func(form any, errs wizard.FieldErrors) map[string]any {
			if errs == nil {
				errs = wizard.FieldErrors{}
			}
			return map[string]any{
				"Form":       form,
				"Errors":     errs,
				"Grades":     wizard.Grades,
				"BloodTypes": wizard.BloodTypes,
			}
		},
	}
}
