package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/subscribers"
)

// Config carries the HTTP-facing settings the handler needs.
type Config struct {
	AllowedOrigins []string
	JWTSecret      string
	Audience       string
	MaxBodySize    int64
	// StaticDir holds the built storefront. Empty disables static serving.
	StaticDir string
}

// Handler holds the ApplicationService, the subscriber list and the chi router.
type Handler struct {
	svc    app.ApplicationService
	subs   *subscribers.Store
	cfg    Config
	log    *zap.Logger
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, subs *subscribers.Store, cfg Config, log *zap.Logger) http.Handler {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	if cfg.Audience == "" {
		cfg.Audience = "authenticated"
	}
	h := &Handler{svc: svc, subs: subs, cfg: cfg, log: log.Named("web")}
	if cfg.JWTSecret == "" {
		h.log.Warn("no JWT secret configured; API authentication is disabled")
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(RequestBodyLimit(cfg.MaxBodySize))

	// ── Public ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/emails", h.subscribe)

	// ── Protected API ────────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.me)
		r.Get("/api/emails", h.listSubscribers)

		r.Route("/api/inventory", func(r chi.Router) {
			r.Get("/", h.apiListInventory)
			r.Post("/", h.apiCreateInventoryItem)
			r.Get("/report", h.apiStockReport)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.apiGetInventoryItem)
				r.Put("/", h.apiUpdateInventoryItem)
				r.Delete("/", h.apiDeleteInventoryItem)
				r.Post("/stock", h.apiAddStock)
				r.Post("/reserve", h.apiReserveStock)
				r.Post("/release", h.apiReleaseStock)
				r.Get("/movements", h.apiInventoryMovements)
				r.Get("/consumption", h.apiItemConsumption)
			})
		})

		r.Route("/api/batches", func(r chi.Router) {
			r.Get("/", h.apiListBatches)
			r.Post("/", h.apiCreateBatch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.apiGetBatch)
				r.Put("/", h.apiUpdateBatch)
				r.Delete("/", h.apiDeleteBatch)
				r.Post("/products", h.apiAddBatchProduct)
				r.Delete("/products/{productID}", h.apiRemoveBatchProduct)
				r.Get("/consumption", h.apiBatchConsumption)
				r.Get("/profit", h.apiBatchProfit)
			})
		})
		r.Get("/api/batch-categories", h.apiListBatchCategories)
		r.Post("/api/batch-categories", h.apiCreateBatchCategory)

		r.Post("/api/consumption", h.apiAddConsumption)
		r.Put("/api/consumption/{id}", h.apiUpdateConsumption)
		r.Delete("/api/consumption/{id}", h.apiDeleteConsumption)

		r.Route("/api/expenses", func(r chi.Router) {
			r.Get("/", h.apiListExpenses)
			r.Post("/", h.apiCreateExpense)
			r.Post("/backfill-links", h.apiBackfillLinks)
			r.Post("/draft", h.apiDraftExpense)
			r.Get("/{id}", h.apiGetExpense)
			r.Put("/{id}", h.apiUpdateExpense)
			r.Delete("/{id}", h.apiDeleteExpense)
		})

		r.Route("/api/income", func(r chi.Router) {
			r.Get("/", h.apiListIncome)
			r.Post("/", h.apiCreateIncome)
			r.Get("/{id}", h.apiGetIncome)
			r.Put("/{id}", h.apiUpdateIncome)
			r.Delete("/{id}", h.apiDeleteIncome)
		})

		r.Get("/api/accounting-heads", h.apiListAccountingHeads)
		r.Post("/api/accounting-heads", h.apiCreateAccountingHead)
		r.Put("/api/accounting-heads/{id}", h.apiUpdateAccountingHead)
		r.Delete("/api/accounting-heads/{id}", h.apiDeleteAccountingHead)
		r.Get("/api/products", h.apiListProducts)
		r.Post("/api/products", h.apiCreateProduct)
		r.Get("/api/customers", h.apiListCustomers)
		r.Post("/api/customers", h.apiCreateCustomer)

		r.Route("/api/reports", func(r chi.Router) {
			r.Get("/summary", h.apiSummary)
			r.Get("/batches", h.apiBatchProfitReport)
			r.Get("/products", h.apiProductProfitReport)
			r.Get("/product-costs", h.apiProductCostReport)
			r.Get("/accounting-heads", h.apiAccountingHeadReport)
			r.Get("/verify", h.apiVerify)
		})
	})

	r.NotFound(h.notFound)

	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// notFound answers unknown API paths with JSON and everything else with the
// storefront, falling back to index.html so client-side routes resolve.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || h.cfg.StaticDir == "" ||
		(r.Method != http.MethodGet && r.Method != http.MethodHead) {
		writeError(w, r, "route not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	clean := filepath.Clean("/" + r.URL.Path)
	target := filepath.Join(h.cfg.StaticDir, filepath.FromSlash(clean))
	if info, err := os.Stat(target); err != nil || info.IsDir() {
		target = filepath.Join(h.cfg.StaticDir, "index.html")
	}
	http.ServeFile(w, r, target)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns 413 if the body exceeds the configured limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// uuidParam parses the named route parameter. On failure it writes a 400 and returns false.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorBody(w, r, errorResponse{Error: "invalid " + name, Code: "VALIDATION_ERROR", Field: name}, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter. Absent means nil.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeErrorBody(w, r, errorResponse{Error: "invalid " + name, Code: "VALIDATION_ERROR", Field: name}, http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}
