package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mooveapp/auctiond/internal/services"
)

// Server exposes the auction read model and submission flows over HTTP/WS.
type Server struct {
	auctions  *services.AuctionService
	wallets   *services.WalletService
	bids      *services.BidService
	withdraws *services.WithdrawService
	buys      *services.BuyService
	admin     *services.AdminService
	hub       *Hub
}

// Deps groups the service-layer collaborators.
type Deps struct {
	Auctions  *services.AuctionService
	Wallets   *services.WalletService
	Bids      *services.BidService
	Withdraws *services.WithdrawService
	Buys      *services.BuyService
	Admin     *services.AdminService
}

// New creates the HTTP server facade.
func New(deps Deps) *Server {
	return &Server{
		auctions:  deps.Auctions,
		wallets:   deps.Wallets,
		bids:      deps.Bids,
		withdraws: deps.Withdraws,
		buys:      deps.Buys,
		admin:     deps.Admin,
		hub:       NewHub(deps.Auctions),
	}
}

// Hub returns the WebSocket hub so the caller can run its broadcast loop.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the gin router.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	api := r.Group("/api")

	auction := api.Group("/auction")
	auction.GET("/current", s.wrap(s.handleAuctionCurrent))
	auction.GET("/:auctionID/bids", s.wrap(s.handleAuctionBids))

	api.GET("/unsold", s.wrap(s.handleUnsold))
	api.GET("/wallet/:address", s.wrap(s.handleWallet))
	api.GET("/nfts/:address", s.wrap(s.handleOwnedNFTs))

	api.POST("/bid/validate", s.wrap(s.handleBidValidate))
	api.POST("/bid", s.wrap(s.handleBidSubmit))
	api.POST("/withdraw/validate", s.wrap(s.handleWithdrawValidate))
	api.POST("/withdraw", s.wrap(s.handleWithdrawSubmit))
	api.POST("/buy/validate", s.wrap(s.handleBuyValidate))
	api.POST("/buy", s.wrap(s.handleBuySubmit))

	admin := api.Group("/admin")
	admin.POST("/auction/start", s.wrap(s.handleAdminStart))
	admin.POST("/auction/close", s.wrap(s.handleAdminClose))

	api.GET("/stream", s.wrap(s.hub.handleStream))

	return r
}

// wrap adapts net/http handlers to gin, injecting path params into request context.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := map[string]string{}
		for _, p := range c.Params {
			m[p.Key] = p.Value
		}
		c.Request = c.Request.WithContext(withParams(c.Request.Context(), m))
		h(c.Writer, c.Request)
	}
}
