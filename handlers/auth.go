package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurante-go/models"
	"restaurante-go/utils"
)

// RegisterRequest struct to bind registration data
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// RegisterHandler stores a pending registration; the account only comes
// into existence once the emailed verification link is followed.
func RegisterHandler(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := Auth.Register(req.Username, req.Email, req.Password, req.Phone, req.Address, models.RoleClient)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registration received, check your email to verify the account"})
}

// VerifyEmailHandler promotes a pending registration to a user account.
func VerifyEmailHandler(c *gin.Context) {
	user, err := Auth.Verify(c.Param("token"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account verified, you can now log in", "user_id": user.ID})
}

func LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Find the user by email
	var user models.User
	if err := DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// Check the password
	if err := user.CheckPassword(req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// Generate JWT token
	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "role": user.Role})
}

// PasswordResetRequestHandler always reports success so the endpoint
// cannot be used to probe which emails are registered.
func PasswordResetRequestHandler(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Auth.RequestPasswordReset(req.Email); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent"})
}

// PasswordResetCheckHandler backs the emailed reset link: it reports
// whether the token is still usable so the form can be shown before any
// password is submitted.
func PasswordResetCheckHandler(c *gin.Context) {
	token := c.Param("token")
	if err := Auth.CheckPasswordResetToken(token); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "token": token})
}

func PasswordResetConfirmHandler(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Auth.ConfirmPasswordReset(req.Token, req.Password); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

type CreateStaffRequest struct {
	Username string      `json:"username" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8,max=72"`
	Role     models.Role `json:"role" binding:"required"`
}

// CreateStaffHandler lets an admin create waiter and admin accounts
// directly, skipping the email-verification gate.
func CreateStaffHandler(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != models.RoleWaiter && req.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be waiter or admin"})
		return
	}

	var existing models.User
	if err := DB.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email or username already registered"})
		return
	}

	user := models.User{Username: req.Username, Email: req.Email, Role: req.Role}
	if err := user.HashPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := DB.Create(&user).Error; err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// AccountHandler returns the authenticated user's profile.
func AccountHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(UserClaimsHandlerKey, claims)
		c.Next()
	}
}

// RequireOp gates a route group on the role permission table. The role
// comes from the JWT so no extra query is needed.
func RequireOp(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User isn't authorized"})
			return
		}
		if !claims.Role.Can(op) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Your role cannot perform this action"})
			return
		}
		c.Next()
	}
}
