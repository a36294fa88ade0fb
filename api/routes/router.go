package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akhilnathan/shopsite-backend/api/controllers"
	"github.com/akhilnathan/shopsite-backend/api/middleware"
	addresssvc "github.com/akhilnathan/shopsite-backend/internal/addresses"
	cartsvc "github.com/akhilnathan/shopsite-backend/internal/cart"
	catalogsvc "github.com/akhilnathan/shopsite-backend/internal/catalog"
	checkoutsvc "github.com/akhilnathan/shopsite-backend/internal/checkout"
	couponsvc "github.com/akhilnathan/shopsite-backend/internal/coupons"
	inventorysvc "github.com/akhilnathan/shopsite-backend/internal/inventory"
	ordersvc "github.com/akhilnathan/shopsite-backend/internal/orders"
	reviewsvc "github.com/akhilnathan/shopsite-backend/internal/reviews"
	usersvc "github.com/akhilnathan/shopsite-backend/internal/users"
	wishlistsvc "github.com/akhilnathan/shopsite-backend/internal/wishlist"
	"github.com/akhilnathan/shopsite-backend/pkg/config"
	"github.com/akhilnathan/shopsite-backend/pkg/db"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"github.com/akhilnathan/shopsite-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Users     usersvc.Service
	Catalog   catalogsvc.Service
	Cart      cartsvc.Service
	Coupons   couponsvc.Service
	Checkout  checkoutsvc.Service
	Orders    ordersvc.Service
	Inventory inventorysvc.Service
	Addresses addresssvc.Service
	Wishlist  wishlistsvc.Service
	Reviews   reviewsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public surface: account creation and catalog reads.
		r.With(middleware.Idempotency(redisClient, logg)).
			Post("/users/register", controllers.Register(svcs.Users, logg))
		r.Get("/products", controllers.ProductsList(svcs.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(svcs.Catalog, logg))
		r.Get("/products/{productId}/reviews", controllers.ReviewsList(svcs.Reviews, logg))

		// Authenticated shopper surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Use(middleware.RateLimit(redisClient, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
				r.Patch("/items/{variantId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{variantId}", controllers.CartRemoveItem(svcs.Cart, logg))
			})

			r.Post("/checkout/quote", controllers.CheckoutQuote(svcs.Cart, svcs.Coupons, logg))
			r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			})

			r.Get("/coupons/{code}/preview", controllers.CouponPreview(svcs.Cart, svcs.Coupons, logg))

			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.Me(svcs.Users, logg))
				r.Patch("/", controllers.MeUpdate(svcs.Users, logg))
				r.Post("/password", controllers.ChangePassword(svcs.Users, logg))
				r.Delete("/", controllers.MeDelete(svcs.Users, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(svcs.Addresses, logg))
				r.Post("/", controllers.AddressCreate(svcs.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(svcs.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(svcs.Addresses, logg))
			})

			r.Post("/products/{productId}/reviews", controllers.ReviewCreate(svcs.Reviews, logg))
			r.Route("/reviews", func(r chi.Router) {
				r.Patch("/{reviewId}", controllers.ReviewUpdate(svcs.Reviews, logg))
				r.Delete("/{reviewId}", controllers.ReviewDelete(svcs.Reviews, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistFetch(svcs.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(svcs.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(svcs.Wishlist, logg))
			})

			// Admin surface.
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Post("/products", controllers.AdminProductCreate(svcs.Catalog, logg))
				r.Patch("/products/{productId}", controllers.AdminProductUpdate(svcs.Catalog, logg))
				r.Patch("/inventory/{variantId}", controllers.AdminInventoryAdjust(svcs.Inventory, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Post("/{orderId}/status", controllers.AdminOrderStatus(svcs.Orders, logg))
					r.Post("/{orderId}/payment", controllers.AdminPaymentResult(svcs.Orders, logg))
				})

				r.Route("/coupons", func(r chi.Router) {
					r.Get("/", controllers.AdminCouponList(svcs.Coupons, logg))
					r.Post("/", controllers.AdminCouponCreate(svcs.Coupons, logg))
					r.Patch("/{couponId}", controllers.AdminCouponUpdate(svcs.Coupons, logg))
					r.Delete("/{couponId}", controllers.AdminCouponDelete(svcs.Coupons, logg))
				})
			})
		})
	})

	return r
}
