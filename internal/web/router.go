package web

import (
	"html/template"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RayanGhomsi/Prestige/internal/handlers"
	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/logging"
	"github.com/RayanGhomsi/Prestige/templates"
)

type Options struct {
	Handlers *handlers.Handlers
	Verifier *identity.Verifier
	Logger   *logging.Logger
	// FilesDir is served read-only at /fichiers/ when the local blob backend is used.
	FilesDir string
}

// filesOnly hides directories so /fichiers/ never produces a listing.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil || st.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func Router(opts Options) http.Handler {
	h := opts.Handlers
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(opts.Logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(opts.Verifier.Authenticate)

	// Public pages
	r.Get("/", h.Home())
	r.Get("/healthz", handlers.Health)
	r.Get("/auth/callback", h.AuthCallback)
	r.Post("/logout", h.Logout)

	r.Group(func(anon chi.Router) {
		anon.Use(identity.RedirectAuthenticated("/dashboard"))
		anon.Get("/login", h.LoginPage())
		anon.Get("/signup", h.SignupPage())
	})

	if opts.FilesDir != "" {
		r.Handle("/fichiers/*", http.StripPrefix("/fichiers/", http.FileServer(filesOnly{http.Dir(opts.FilesDir)})))
	}

	// --- Parent area ---
	r.Group(func(pr chi.Router) {
		pr.Use(identity.RequireUser("/login"))

		pr.Get("/dashboard", h.Dashboard())

		// Wizard
		pr.Get("/inscription/nouvelle", h.WizardForm())
		pr.Post("/inscription/nouvelle/etape/{n}", h.WizardStep())
		pr.Post("/inscription/nouvelle/precedent", h.WizardPrevious)
		pr.Post("/inscription/nouvelle/modifier/{n}", h.WizardEditStep)
		pr.Post("/inscription/nouvelle/soumettre", h.WizardSubmit())
		pr.Get("/inscription/confirmation", h.Confirmation())
		pr.Get("/inscription/confirmation/{ref}.png", h.ConfirmationQR)

		// Applications
		pr.Get("/demandes", h.ApplicationsList())
		pr.Get("/demandes/{id}", h.ApplicationDetail())
		pr.Get("/demandes/{id}/modifier", h.EditForm)
		pr.Post("/demandes/{id}/modifier", h.EditSubmit)
		pr.Post("/demandes/{id}/documents/{doc}/supprimer", h.DeleteDocument)

		// Profile
		pr.Get("/profil", h.ProfileForm())
		pr.Post("/profil", h.ProfileSubmit())
	})

	return r
}

// MustParseTemplates loads the shared layouts and partials. Pages are added per handler.
func MustParseTemplates() *template.Template {
	p := template.New("").Funcs(handlers.Funcs())
	p = template.Must(p.ParseFS(templates.FS, "layouts/*.tmpl"))
	p = template.Must(p.ParseFS(templates.FS, "partials/*.tmpl"))
	return p
}
