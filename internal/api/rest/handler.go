package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaintrace/provenance-api/internal/api/middleware"
	"github.com/chaintrace/provenance-api/internal/api/rest/dto"
	"github.com/chaintrace/provenance-api/internal/auth"
	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/ledger"
	"github.com/chaintrace/provenance-api/internal/logger"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// Login authenticates a wallet signature and issues a session credential
	// POST /api/v1/auth/login
	Login(c *gin.Context)

	// RefreshToken issues a fresh credential for a still-valid one
	// POST /api/v1/auth/refresh
	RefreshToken(c *gin.Context)

	// VerifyToken reports whether the presented credential is valid
	// GET /api/v1/auth/verify
	VerifyToken(c *gin.Context)

	// CreateProduct registers a new product ledger (requires authentication)
	// POST /api/v1/products
	CreateProduct(c *gin.Context)

	// TransferOwnership hands a product over to a new owner (requires authentication)
	// POST /api/v1/products/:productId/transfer
	TransferOwnership(c *gin.Context)

	// RecordRepair appends a repair record (requires authentication)
	// POST /api/v1/products/:productId/repair
	RecordRepair(c *gin.Context)

	// RetireProduct marks a product as end-of-life (requires authentication)
	// POST /api/v1/products/:productId/retire
	RetireProduct(c *gin.Context)

	// GetProductHistory retrieves a product's full provenance chain
	// GET /api/v1/products/:productId/history
	GetProductHistory(c *gin.Context)

	// GetTransactions retrieves the global record feed with optional filters
	// GET /api/v1/transactions?owner=<address>&previous_owner=<address>&start_time=<rfc3339>&end_time=<rfc3339>&limit=<limit>
	GetTransactions(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	verifier *auth.Verifier
	ledger   *ledger.Service
}

// NewHandler creates a new REST API handler
func NewHandler(verifier *auth.Verifier, svc *ledger.Service) Handler {
	return &handler{
		verifier: verifier,
		ledger:   svc,
	}
}

// Login authenticates a wallet signature and issues a session credential
func (h *handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	credential, err := h.verifier.Authenticate(
		domain.WalletAddress(req.WalletAddress),
		[]byte(req.Message),
		req.Signature,
	)
	if err != nil {
		logger.Warn("Login failed",
			zap.Error(err),
			zap.String("wallet", req.WalletAddress),
			zap.String("client_ip", c.ClientIP()),
		)
		respondUnauthorized(c, "Authentication failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialToLogin(credential, h.verifier.TTL()))
}

// RefreshToken issues a fresh credential for a still-valid one
func (h *handler) RefreshToken(c *gin.Context) {
	token, err := middleware.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		respondUnauthorized(c, "Missing or invalid Authorization header")
		return
	}

	credential, err := h.verifier.Refresh(token)
	if err != nil {
		respondUnauthorized(c, "Invalid or expired token", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialToLogin(credential, h.verifier.TTL()))
}

// VerifyToken reports whether the presented credential is valid
func (h *handler) VerifyToken(c *gin.Context) {
	token, err := middleware.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.VerifyResponse{Valid: false})
		return
	}

	credential, err := h.verifier.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.VerifyResponse{Valid: false})
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialToVerify(credential))
}

// actingWallet checks that the request's acting identity matches the
// authenticated credential. A caller may only act as the wallet it logged
// in with.
func (h *handler) actingWallet(c *gin.Context, claimed string) (domain.WalletAddress, bool) {
	wallet, ok := middleware.AuthenticatedWallet(c)
	if !ok {
		respondUnauthorized(c, "Authentication required")
		return "", false
	}

	if wallet.String() != claimed {
		respondWithError(c, http.StatusForbidden, errCodeForbidden,
			"Credential does not match acting identity")
		return "", false
	}

	return wallet, true
}

// CreateProduct registers a new product ledger
func (h *handler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	acting, ok := h.actingWallet(c, req.Manufacturer)
	if !ok {
		return
	}

	receipt, err := h.ledger.CreateProduct(c.Request.Context(), req.ProductID, req.Metadata, acting)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapReceiptToDTO(receipt))
}

// TransferOwnership hands a product over to a new owner
func (h *handler) TransferOwnership(c *gin.Context) {
	productID := c.Param("productId")

	var req dto.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	acting, ok := h.actingWallet(c, req.CurrentOwner)
	if !ok {
		return
	}

	receipt, err := h.ledger.TransferOwnership(c.Request.Context(), productID, acting, domain.WalletAddress(req.NextOwner))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapReceiptToDTO(receipt))
}

// RecordRepair appends a repair record to a product ledger
func (h *handler) RecordRepair(c *gin.Context) {
	productID := c.Param("productId")

	var req dto.RecordRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	acting, ok := h.actingWallet(c, req.Owner)
	if !ok {
		return
	}

	receipt, err := h.ledger.RecordRepair(c.Request.Context(), productID, acting, req.RepairMetadata)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapReceiptToDTO(receipt))
}

// RetireProduct marks a product as end-of-life
func (h *handler) RetireProduct(c *gin.Context) {
	productID := c.Param("productId")

	var req dto.RetireProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	acting, ok := h.actingWallet(c, req.Owner)
	if !ok {
		return
	}

	receipt, err := h.ledger.RetireProduct(c.Request.Context(), productID, acting)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapReceiptToDTO(receipt))
}

// GetProductHistory retrieves a product's full provenance chain
func (h *handler) GetProductHistory(c *gin.Context) {
	productID := c.Param("productId")
	if productID == "" {
		respondBadRequest(c, "Product ID is required")
		return
	}

	history, err := h.ledger.History(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProduct) {
			respondWithError(c, http.StatusNotFound, errCodeNotFound, "Product not found")
			return
		}
		respondInternalError(c, err, "Failed to load product history",
			zap.String("product_id", productID))
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		ProductID: productID,
		History:   dto.MapRecordsToDTO(history),
	})
}

// GetTransactions retrieves the global record feed with optional filters
func (h *handler) GetTransactions(c *gin.Context) {
	params, err := ParseListTransactionsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	filter, err := params.Filter()
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	records, err := h.ledger.Feed(c.Request.Context(), filter)
	if err != nil {
		respondInternalError(c, err, "Failed to load transactions")
		return
	}

	c.JSON(http.StatusOK, dto.TransactionListResponse{
		Items: dto.MapRecordsToDTO(records),
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
