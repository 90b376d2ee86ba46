package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/storage"
)

const bcryptCost = 10

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Username == "" || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username, email, and password are required"})
		return
	}

	if _, err := h.Store.UserByUsername(input.Username); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already exists"})
		return
	}
	if _, err := h.Store.UserByEmail(input.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashed),
	}
	if err := h.Store.CreateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    userResponse(user),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Username == "" || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username, email, and password are required"})
		return
	}

	user, err := h.Store.UserByUsername(input.Username)
	if err != nil || user.Email != input.Email {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or email"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userResponse(user),
	})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}

	if _, err := h.Store.UserByEmail(input.Email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User with this email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	resetToken := hex.EncodeToString(tokenBytes)
	expires := time.Now().Add(time.Hour)

	if err := h.Store.SetResetToken(input.Email, resetToken, expires); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	if h.Mailer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Email sending is not configured"})
		return
	}
	if err := h.Mailer.SendPasswordReset(input.Email, resetToken); err != nil {
		log.Printf("[auth] failed to send reset email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send password reset email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var input struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Token == "" || input.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Token and new password are required"})
		return
	}

	user, err := h.Store.UserByResetToken(input.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired token"})
		return
	}
	if user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Token has expired"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	if err := h.Store.UpdatePassword(user.ID, string(hashed)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
