package cmd

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mrinallcx/payagent-core/auth"
	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/fees"
	"github.com/Mrinallcx/payagent-core/payments"
	"github.com/Mrinallcx/payagent-core/types"
	"github.com/Mrinallcx/payagent-core/webhooks"
)

const defaultListenAddress = "localhost:8000"

type apiServer struct {
	appState    *AppState
	store       types.Store
	engine      *fees.Engine
	processor   *payments.Processor
	dispatcher  *webhooks.Dispatcher
	credentials *auth.CredentialManager
	cipher      *auth.Cipher
	sigVerifier *auth.SignatureVerifier
	registry    *chains.Registry
}

func (s *apiServer) startAPI() {
	logger := s.appState.Logger
	cfg := s.appState.Config
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	err := router.SetTrustedProxies(cfg.API.TrustedProxies)
	if err != nil {
		logger.Error("Unable to set trusted proxies on API server: " + err.Error())
		os.Exit(1)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hexaddress", func(fl validator.FieldLevel) bool {
			return common.IsHexAddress(fl.Field().String())
		})
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/v1", auth.Middleware(s.sigVerifier, logger))
	authed.POST("/payments", s.createPayment)
	authed.GET("/payments/:id", s.getPayment)
	authed.POST("/payments/:id/verify", s.verifyPayment)
	authed.POST("/subscriptions", s.createSubscription)
	authed.DELETE("/subscriptions/:id", s.deleteSubscription)
	authed.POST("/credentials/rotate", s.rotateCredential)

	listen := cfg.API.ListenAddress
	if listen == "" {
		listen = defaultListenAddress
	}
	if err := router.Run(listen); err != nil {
		logger.Error("Unable to start API server: " + err.Error())
		os.Exit(1)
	}
}

type createPaymentRequest struct {
	CreatorID        string `json:"creator_id" binding:"required"`
	PayerID          string `json:"payer_id"`
	Network          string `json:"network" binding:"required"`
	TokenSymbol      string `json:"token_symbol" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	Receiver         string `json:"receiver" binding:"required,hexaddress"`
	PayerWallet      string `json:"payer_wallet" binding:"required,hexaddress"`
	ExpiresInSeconds int64  `json:"expires_in_seconds" binding:"omitempty,min=60"`
}

func (s *apiServer) createPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	canonical, ok := s.registry.Resolve(req.Network)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported network: " + req.Network})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "amount must be a positive decimal"})
		return
	}

	tokenAddress, _ := s.registry.TokenAddress(canonical, req.TokenSymbol)
	if tokenAddress == "" && !s.registry.IsNative(req.TokenSymbol, canonical) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unsupported token on " + canonical + ": " + req.TokenSymbol})
		return
	}

	expiresIn := time.Duration(req.ExpiresInSeconds) * time.Second
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}

	now := time.Now().UTC()
	payment := &types.Payment{
		ID:           uuid.NewString(),
		CreatorID:    req.CreatorID,
		PayerID:      req.PayerID,
		Network:      canonical,
		TokenSymbol:  req.TokenSymbol,
		TokenAddress: tokenAddress,
		Amount:       amount,
		Receiver:     req.Receiver,
		PayerWallet:  req.PayerWallet,
		Status:       types.PaymentPending,
		Created:      now,
		Updated:      now,
		ExpiresAt:    now.Add(expiresIn),
	}

	// A quote at creation time is advisory; settlement recomputes it.
	quote, err := s.engine.ComputeFee(c.Request.Context(), payment.PayerWallet, canonical, payment.TokenSymbol)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	payment.FeeQuote = quote

	if err := s.store.PutPayment(c.Request.Context(), payment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unable to store payment"})
		return
	}

	s.dispatcher.Dispatch(types.EventPaymentCreated, payment)

	c.JSON(http.StatusCreated, payment)
}

func (s *apiServer) getPayment(c *gin.Context) {
	payment, ok, err := s.store.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unable to load payment"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "payment not found"})
		return
	}
	c.JSON(http.StatusOK, payment)
}

type verifyPaymentRequest struct {
	TxHash string `json:"tx_hash" binding:"required"`
}

func (s *apiServer) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	result, err := s.processor.ProcessVerification(c.Request.Context(), c.Param("id"), req.TxHash)
	switch {
	case errors.Is(err, payments.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "payment not found"})
		return
	case errors.Is(err, payments.ErrAlreadySettled):
		c.JSON(http.StatusConflict, gin.H{"message": "payment already settled"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

type createSubscriptionRequest struct {
	PartyID    string   `json:"party_id" binding:"required"`
	URL        string   `json:"url" binding:"required,url"`
	EventTypes []string `json:"event_types" binding:"required,min=1"`
	Secret     string   `json:"secret" binding:"required,min=16"`
}

func (s *apiServer) createSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	encrypted, err := s.cipher.Encrypt(req.Secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unable to protect secret"})
		return
	}

	now := time.Now().UTC()
	sub := &types.WebhookSubscription{
		ID:              uuid.NewString(),
		PartyID:         req.PartyID,
		URL:             req.URL,
		EventTypes:      req.EventTypes,
		Active:          true,
		EncryptedSecret: encrypted,
		Created:         now,
		Updated:         now,
	}

	if err := s.store.PutSubscription(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unable to store subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          sub.ID,
		"party_id":    sub.PartyID,
		"url":         sub.URL,
		"event_types": sub.EventTypes,
		"active":      sub.Active,
	})
}

// rotateCredential rotates the caller's own key. The new secret is
// returned exactly once; the old one keeps working through the grace
// window so in-flight clients are not cut off mid-rollout.
func (s *apiServer) rotateCredential(c *gin.Context) {
	keyID := c.GetString("key_id")

	secret, err := s.credentials.Rotate(c.Request.Context(), keyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unable to rotate credential"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key_id": keyID, "secret": secret})
}

func (s *apiServer) deleteSubscription(c *gin.Context) {
	if err := s.store.DeleteSubscription(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unable to delete subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subscription deleted"})
}
