package handler

import (
	"net/http"

	"github.com/segyhp/microloan-ledger/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route. authenticate resolves the actor; routes that
// change the ledger additionally require one.
func NewRouter(loans *LoanHandler, health *HealthHandler, authenticate func(http.Handler) http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Metrics)

	// Health check
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authenticate)

	mutating := func(fn http.HandlerFunc) http.Handler {
		return middleware.RequireActor(fn)
	}

	api.Handle("/loans", mutating(loans.IssueLoan)).Methods(http.MethodPost)
	api.HandleFunc("/loans", loans.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", loans.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/balance", loans.GetBalance).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/activity", loans.ListActivity).Methods(http.MethodGet)
	api.Handle("/loans/{id}/payments", mutating(loans.RecordPayment)).Methods(http.MethodPost)
	api.Handle("/loans/{id}/late-fees", mutating(loans.ApplyLateFee)).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/late-fee-suggestion", loans.SuggestLateFee).Methods(http.MethodGet)
	api.Handle("/loans/{id}/late-fees/{feeId}/waive", mutating(loans.WaiveLateFee)).Methods(http.MethodPost)
	api.Handle("/loans/{id}/waivers", mutating(loans.GrantWaiver)).Methods(http.MethodPost)
	api.Handle("/loans/{id}/due-date", mutating(loans.ExtendDueDate)).Methods(http.MethodPut)
	api.HandleFunc("/emi/schedule", loans.EMISchedule).Methods(http.MethodPost)
	api.HandleFunc("/reports/dashboard", loans.Dashboard).Methods(http.MethodGet)

	return router
}
