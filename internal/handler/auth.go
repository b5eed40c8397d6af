package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pointstake/internal/auth"
	"pointstake/internal/service"
)

type AuthHandler struct {
	Nonces *auth.NonceStore
	Tokens *auth.TokenIssuer
	Ledger *service.LedgerService
}

func (h *AuthHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/auth")
	group.GET("/nonce", h.nonce)
	group.POST("/login", h.login)
	group.GET("/me", AuthRequired(h.Tokens), h.me)
}

func (h *AuthHandler) nonce(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		Error(c, http.StatusBadRequest, "wallet is required", nil)
		return
	}
	nonce := h.Nonces.Issue(wallet)
	Ok(c, gin.H{
		"nonce":   nonce,
		"message": auth.LoginMessage(nonce),
	}, nil)
}

type loginRequest struct {
	Wallet    string `json:"wallet" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "wallet and signature are required", nil)
		return
	}

	nonce, ok := h.Nonces.Consume(req.Wallet)
	if !ok {
		Error(c, http.StatusUnauthorized, "no active nonce for wallet, request a new one", nil)
		return
	}
	if err := auth.VerifySignature(req.Wallet, auth.LoginMessage(nonce), req.Signature); err != nil {
		Error(c, http.StatusUnauthorized, "signature verification failed", nil)
		return
	}

	user, err := h.Ledger.EnsureUser(c.Request.Context(), req.Wallet)
	if err != nil {
		ServiceError(c, err)
		return
	}
	token, err := h.Tokens.Issue(user.ID, user.Wallet)
	if err != nil {
		Error(c, http.StatusInternalServerError, "token issue failed", nil)
		return
	}
	Ok(c, gin.H{
		"token": token,
		"user":  user,
	}, nil)
}

func (h *AuthHandler) me(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		Error(c, http.StatusUnauthorized, "missing claims", nil)
		return
	}
	user, err := h.Ledger.Store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if user == nil {
		Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	Ok(c, user, nil)
}
