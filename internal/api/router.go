package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/eduhub/edupay/internal/api/httpx"
	"github.com/eduhub/edupay/internal/api/validate"
	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/metrics"
	"github.com/eduhub/edupay/internal/middleware"
	"github.com/eduhub/edupay/internal/models"
	"github.com/eduhub/edupay/internal/services"
)

type initiateRequest struct {
	PaymentMethod string                 `json:"payment_method"`
	Customer      models.CustomerContact `json:"customer"`
}

func NewRouter(cfg config.Config, ps *services.PaymentService, am *middleware.AuthMiddleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/payments", func(r chi.Router) {
		// Gateways call back here; no bearer token, authenticity is proven
		// by each adapter's signature check instead.
		r.HandleFunc("/callback", func(w http.ResponseWriter, req *http.Request) {
			metrics.CallbacksReceived.Inc()
			payload := mergeParams(req)

			tx, err := ps.Verify(req.Context(), payload)
			switch {
			case err == nil:
				http.Redirect(w, req, successURL(cfg, tx.ID), http.StatusFound)
			case errs.Is(err, errs.KindVerificationFailed):
				http.Redirect(w, req, failureURL(cfg, err.Error()), http.StatusFound)
			case errs.Retryable(err):
				// Transient upstream trouble: tell the gateway to retry
				// delivery rather than sending the buyer to a failure page.
				httpx.WriteDomainError(w, err)
			default:
				http.Redirect(w, req, failureURL(cfg, "payment could not be verified"), http.StatusFound)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(am.Auth)

			r.Post("/initiate", func(w http.ResponseWriter, req *http.Request) {
				var body initiateRequest
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "validation", "bad request body", nil)
					return
				}
				if err := validate.Collect(
					validate.Required("payment_method", body.PaymentMethod),
					validate.Required("customer.first_name", body.Customer.FirstName),
					validate.Required("customer.phone", body.Customer.Phone),
					validate.Email("customer.email", body.Customer.Email),
				); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error(), nil)
					return
				}

				user := middleware.FromCtx(req.Context())
				redirect, err := ps.Initiate(req.Context(), user.UserID, body.PaymentMethod, body.Customer)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "data": redirect})
			})

			r.Post("/verify", func(w http.ResponseWriter, req *http.Request) {
				var body struct {
					TransactionID string `json:"transaction_id"`
				}
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.TransactionID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "validation", "transaction_id required", nil)
					return
				}
				tx, err := ps.VerifyByID(req.Context(), body.TransactionID)
				if err != nil && !errs.Is(err, errs.KindVerificationFailed) {
					httpx.WriteDomainError(w, err)
					return
				}
				// A confirmed failure is still a settled answer.
				httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": string(tx.Status), "transaction": tx})
			})

			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				user := middleware.FromCtx(req.Context())
				limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
				offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
				txs, err := ps.History(req.Context(), user.UserID, limit, offset)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txs)
			})

			r.With(middleware.RequireRole("admin")).Get("/{id}/status", func(w http.ResponseWriter, req *http.Request) {
				tx, err := ps.Status(req.Context(), chi.URLParam(req, "id"))
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, tx)
			})
		})
	})

	return r
}

// mergeParams flattens query string, form body and JSON body into one map;
// providers are inconsistent about where they put callback fields. Body
// values win over query values of the same name.
func mergeParams(r *http.Request) map[string]string {
	out := map[string]string{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	ct := r.Header.Get("Content-Type")
	switch {
	case ct == "" && r.Method == http.MethodGet:
		// redirect without a body
	case strings.HasPrefix(ct, "application/json"):
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			for k, v := range body {
				switch t := v.(type) {
				case string:
					out[k] = t
				case float64:
					out[k] = strconv.FormatFloat(t, 'f', -1, 64)
				case bool:
					out[k] = strconv.FormatBool(t)
				}
			}
		}
	default:
		if err := r.ParseForm(); err == nil {
			for k, vs := range r.PostForm {
				if len(vs) > 0 {
					out[k] = vs[0]
				}
			}
		}
	}
	return out
}

func successURL(cfg config.Config, transactionID string) string {
	return cfg.FrontendSuccessURL + "&transactionId=" + url.QueryEscape(transactionID)
}

func failureURL(cfg config.Config, message string) string {
	return cfg.FrontendFailureURL + "&message=" + url.QueryEscape(message)
}
