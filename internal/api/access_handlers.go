package api

import (
	"encoding/json"
	"net/http"

	"github.com/careerlens/careerlens/internal/middleware"
	"github.com/careerlens/careerlens/internal/services"
)

// POST /api/access-codes/verify
//
// Verification outcomes are data, not errors: an unknown, expired, or
// exhausted code answers 200 with valid=false so the storefront can steer
// the visitor to checkout.
func (rt *Router) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid body"))
		return
	}
	res, err := rt.access.Verify(req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/checkout
func (rt *Router) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req services.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid body"))
		return
	}
	sess, err := rt.checkout.CreateCheckout(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// POST /api/checkout/complete
//
// Reachable both from the provider redirect (anonymous) and from a logged
// in buyer; the user id is attached when present so the purchase lands in
// their history.
func (rt *Router) handleCheckoutComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req services.CompletePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, services.NewInvalidError("invalid body"))
		return
	}
	if uid, ok := middleware.UserIDFromContext(r.Context()); ok {
		req.UserID = uid
	}
	out, err := rt.checkout.CompletePayment(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/purchases
func (rt *Router) handlePurchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	purchases, err := rt.checkout.ListPurchases(uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}
