// Package httpapi is the HTTP layer: routing, middleware, and the handlers
// that connect the access gate to the clinic-scoped stores.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"mediflow.org/internal/identity"
	"mediflow.org/internal/obs"
	"mediflow.org/internal/records"
	"mediflow.org/internal/tenant"
)

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Version        string
	ReadyProbe     ReadyProbe
	Identities     identity.Store
	Memberships    tenant.MembershipStore
	Clinics        tenant.ClinicStore
	Records        records.Store
	AllowedOrigins []string
	Limiter        Limiter
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	readyProbe  ReadyProbe
	version     string
	identities  identity.Store
	memberships tenant.MembershipStore
	clinics     tenant.ClinicStore
	records     records.Store
	resolver    *tenant.Resolver
	origins     []string
	limiter     Limiter
}

func New(cfg Config) *API {
	a := &API{
		mux:         http.NewServeMux(),
		readyProbe:  cfg.ReadyProbe,
		version:     cfg.Version,
		identities:  cfg.Identities,
		memberships: cfg.Memberships,
		clinics:     cfg.Clinics,
		records:     cfg.Records,
		resolver:    tenant.NewResolver(cfg.Memberships),
		origins:     cfg.AllowedOrigins,
		limiter:     cfg.Limiter,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth/session
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/token", a.handleToken)
	a.mux.HandleFunc("/v1/me", a.handleMe)

	// tenant bootstrap
	a.mux.HandleFunc("/v1/clinics", a.handleClinics)
	a.mux.HandleFunc("/v1/memberships", a.handleMemberships)
	a.mux.HandleFunc("/v1/memberships/", a.handleMembershipResource)
	a.mux.HandleFunc("/v1/staff", a.handleStaff)
	a.mux.HandleFunc("/v1/staff/doctors", a.handleDoctors)

	// clinic-scoped records
	a.mux.HandleFunc("/v1/patients", a.handlePatients)
	a.mux.HandleFunc("/v1/patients/transfer", a.handlePatientTransfer)
	a.mux.HandleFunc("/v1/appointments", a.handleAppointments)
	a.mux.HandleFunc("/v1/appointments/", a.handleAppointmentResource)
	a.mux.HandleFunc("/v1/visits", a.handleVisits)
	a.mux.HandleFunc("/v1/prescriptions", a.handlePrescriptions)
	a.mux.HandleFunc("/v1/invoices", a.handleInvoices)
	a.mux.HandleFunc("/v1/invoices/", a.handleInvoiceResource)
	a.mux.HandleFunc("/v1/dashboard/stats", a.handleDashboardStats)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	if a.limiter != nil {
		h = RateLimit(h, a.limiter)
	}
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- ops handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "mediflow-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "mediflow-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
