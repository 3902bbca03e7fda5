package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/truong-nd12/canteen-backend/internal/cart"
	"github.com/truong-nd12/canteen-backend/internal/catalog"
	"github.com/truong-nd12/canteen-backend/internal/handler"
	"github.com/truong-nd12/canteen-backend/internal/order"
	"github.com/truong-nd12/canteen-backend/internal/promotion"
	"github.com/truong-nd12/canteen-backend/internal/tracking"
)

// NewRouter wires repositories, services and handlers onto a chi router.
func NewRouter(pool *pgxpool.Pool) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	resolver := catalog.NewResolver(pool)

	cartRepo := cart.NewRepository(pool)
	cartSvc := cart.NewService(cartRepo, resolver)

	promoRepo := promotion.NewRepository(pool)
	promoSvc := promotion.NewService(promoRepo)

	trackingRepo := tracking.NewRepository(pool)
	trackingSvc := tracking.NewService(trackingRepo)

	orderRepo := order.NewRepository(pool)
	orderSvc := order.NewService(orderRepo, cartSvc, promoSvc, trackingSvc, resolver)

	handler.NewCartHandler(cartSvc).RegisterRoutes(r)
	handler.NewPromotionHandler(promoSvc, orderSvc).RegisterRoutes(r)
	handler.NewOrderHandler(orderSvc).RegisterRoutes(r)
	handler.NewTrackingHandler(trackingSvc).RegisterRoutes(r)

	return r
}
