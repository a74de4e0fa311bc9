package routes

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"storefront/live"
	"storefront/middleware"
	"storefront/orders"
	"storefront/pay"
	"storefront/products"
	"storefront/ratelim"
	"storefront/reviews"
	"storefront/summary"
	"storefront/users"
	"storefront/utils"
)

// Handlers bundles everything the router dispatches to.
type Handlers struct {
	Users    *users.Handler
	Products *products.Handler
	Reviews  *reviews.Handler
	Orders   *orders.Handler
	Checkout *pay.Handler
	Summary  *summary.Handler
	Live     *live.Handler
}

// Gates are the middlewares routes pick from.
type Gates struct {
	Auth        func(httprouter.Handle) httprouter.Handle
	RateLimiter *ratelim.RateLimiter
	Idempotency func(httprouter.Handle) httprouter.Handle
}

func (g Gates) user() func(httprouter.Handle) httprouter.Handle {
	return middleware.Chain(g.Auth)
}

func (g Gates) admin() func(httprouter.Handle) httprouter.Handle {
	return middleware.Chain(g.Auth, middleware.RequireAdmin)
}

func New(h Handlers, g Gates) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Health)

	AddUserRoutes(router, h, g)
	AddProductRoutes(router, h, g)
	AddReviewRoutes(router, h, g)
	AddOrderRoutes(router, h, g)
	AddPayRoutes(router, h, g)
	AddAdminRoutes(router, h, g)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Route not found")
	})
	return router
}

func Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
}

func AddUserRoutes(router *httprouter.Router, h Handlers, g Gates) {
	router.POST("/api/users/register", g.RateLimiter.Limit(h.Users.Register))
	router.POST("/api/users/login", g.RateLimiter.Limit(h.Users.Login))
	router.GET("/api/users", g.admin()(h.Users.GetUsers))
	router.PATCH("/api/users/:id/name", g.user()(h.Users.UpdateName))
	router.PATCH("/api/users/:id/email", g.user()(h.Users.UpdateEmail))
	router.PATCH("/api/users/:id/password", g.user()(h.Users.UpdatePassword))

	router.GET("/api/users/:id/orders", g.user()(h.Orders.GetUserOrders))
	router.GET("/api/users/:id/products", g.user()(h.Products.GetFavorites))
	router.PATCH("/api/users/:id/products/:productId", g.user()(h.Products.AddFavorite))
	router.DELETE("/api/users/:id/products/:productId", g.user()(h.Products.RemoveFavorite))
}

func AddProductRoutes(router *httprouter.Router, h Handlers, g Gates) {
	router.GET("/api/products", h.Products.GetProducts)
	router.GET("/api/products/:id", h.Products.GetProduct)
	router.POST("/api/products", g.admin()(h.Products.CreateProduct))
	router.POST("/api/products/seed", g.admin()(h.Products.SeedProducts))
	router.PUT("/api/products/:id", g.admin()(h.Products.UpdateProduct))
	router.DELETE("/api/products/:id", g.admin()(h.Products.DeleteProduct))
}

func AddReviewRoutes(router *httprouter.Router, h Handlers, g Gates) {
	router.GET("/api/products/:id/reviews", h.Reviews.GetReviews)
	router.POST("/api/reviews", g.user()(h.Reviews.CreateReview))
	router.DELETE("/api/reviews/:id", g.admin()(h.Reviews.DeleteReview))
}

func AddOrderRoutes(router *httprouter.Router, h Handlers, g Gates) {
	router.GET("/api/orders", g.admin()(h.Orders.GetOrders))
	router.POST("/api/orders", middleware.Chain(g.Auth, g.Idempotency)(h.Orders.CreateOrder))
	router.GET("/api/orders/:id", g.user()(h.Orders.GetOrder))
	router.GET("/api/orders/:id/invoice", g.user()(h.Orders.Invoice))
	router.DELETE("/api/orders/:id", g.admin()(h.Orders.DeleteOrder))
	router.PATCH("/api/orders/:id/pay", g.user()(h.Orders.MarkPaid))
	router.PATCH("/api/orders/:id/deliver", g.admin()(h.Orders.MarkDelivered))
}

func AddPayRoutes(router *httprouter.Router, h Handlers, g Gates) {
	router.POST("/api/payments/stripe", middleware.Chain(g.Auth, g.Idempotency)(h.Checkout.PayWithStripe))
}

func AddAdminRoutes(router *httprouter.Router, h Handlers, g Gates) {
	router.GET("/api/summary", g.admin()(h.Summary.GetSummary))
	router.GET("/api/live/orders", g.admin()(h.Live.OrderFeed))
}
