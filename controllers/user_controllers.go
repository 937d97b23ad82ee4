package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/fnb-kiosk/middlewares"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const RoleAdmin = "admin"

// AdminCredentials is the single operator account. PasswordHash, when set, is
// a bcrypt hash and takes precedence over Password.
type AdminCredentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (a AdminCredentials) check(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) != 1 {
		return false
	}
	if a.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
	}
	return a.Password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
}

type UserController struct {
	Admin     AdminCredentials
	Secret    []byte
	TTL       time.Duration
	Blacklist *utils.TokenBlacklist
}

func NewUserController(admin AdminCredentials, secret []byte, ttl time.Duration, blacklist *utils.TokenBlacklist) *UserController {
	return &UserController{Admin: admin, Secret: secret, TTL: ttl, Blacklist: blacklist}
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	if !uc.Admin.check(strings.TrimSpace(input.Username), input.Password) {
		utils.ErrorLogger.WithField("username", input.Username).Warn("Failed admin login")
		utils.RespondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(uc.Admin.Username, RoleAdmin, uc.Secret, uc.TTL)
	if err != nil {
		utils.ErrorLogger.Errorf("Failed to sign token: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Could not create token")
		return
	}

	utils.InfoLogger.WithField("username", uc.Admin.Username).Info("Admin logged in")
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":      token,
		"expires_in": int(uc.TTL.Seconds()),
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (uc *UserController) Logout(c *gin.Context) {
	token := c.GetString(middlewares.ContextToken)
	if token == "" {
		utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
		return
	}

	until := time.Now().Add(uc.TTL)
	if claims, err := utils.ParseToken(token, uc.Secret); err == nil && claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	uc.Blacklist.Add(token, until)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}
