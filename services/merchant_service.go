package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"golang.org/x/crypto/bcrypt"
)

const webhookSecretLength = 16

type LoginResponse struct {
	Token    string          `json:"token"`
	Merchant MerchantSummary `json:"merchant"`
}

type MerchantSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

type WebhookConfig struct {
	WebhookURL    *string `json:"webhook_url"`
	WebhookSecret string  `json:"webhook_secret"`
}

type TestMerchantView struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
	Seeded bool   `json:"seeded"`
}

// MerchantService authenticates merchants and manages their webhook settings.
type MerchantService struct {
	store  *repository.Store
	tokens *utils.TokenManager
}

func NewMerchantService(store *repository.Store, tokens *utils.TokenManager) *MerchantService {
	return &MerchantService{store: store, tokens: tokens}
}

// Authenticate checks an API key/secret pair.
func (s *MerchantService) Authenticate(ctx context.Context, apiKey, apiSecret string) (*models.Merchant, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, Unauthorized("Invalid API credentials")
	}
	merchant, err := s.store.Merchants.FindByAPIKey(ctx, apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, Unauthorized("Invalid API credentials")
	}
	if err != nil {
		return nil, Internal("Failed to load merchant", err)
	}
	if subtle.ConstantTimeCompare([]byte(merchant.APISecret), []byte(apiSecret)) != 1 || !merchant.IsActive {
		return nil, Unauthorized("Invalid API credentials")
	}
	return merchant, nil
}

// MerchantFromToken resolves a dashboard bearer token.
func (s *MerchantService) MerchantFromToken(ctx context.Context, token string) (*models.Merchant, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, Unauthorized("Invalid or expired token")
	}
	merchant, err := s.store.Merchants.FindByID(ctx, claims.MerchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, Unauthorized("Invalid or expired token")
	}
	if err != nil {
		return nil, Internal("Failed to load merchant", err)
	}
	if !merchant.IsActive {
		return nil, Unauthorized("Invalid or expired token")
	}
	return merchant, nil
}

func (s *MerchantService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, BadRequest("email and password are required")
	}
	merchant, err := s.store.Merchants.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, Internal("Failed to load merchant", err)
	}
	if merchant.PasswordHash == "" || !merchant.IsActive {
		return nil, Unauthorized("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(merchant.PasswordHash), []byte(password)); err != nil {
		return nil, Unauthorized("Invalid email or password")
	}

	token, err := s.tokens.GenerateToken(merchant.ID, merchant.Email)
	if err != nil {
		return nil, Internal("Failed to issue token", err)
	}
	utils.InfoLogger.WithField("merchant_id", merchant.ID).Info("Merchant logged in")
	return &LoginResponse{
		Token: token,
		Merchant: MerchantSummary{
			ID:     merchant.ID,
			Name:   merchant.Name,
			Email:  merchant.Email,
			APIKey: merchant.APIKey,
		},
	}, nil
}

func (s *MerchantService) GetWebhookConfig(merchant *models.Merchant) WebhookConfig {
	return WebhookConfig{WebhookURL: merchant.WebhookURL, WebhookSecret: merchant.WebhookSecret}
}

// UpdateWebhookURL stores url, or clears it when url is nil or blank.
func (s *MerchantService) UpdateWebhookURL(ctx context.Context, merchant *models.Merchant, url *string) (*WebhookConfig, error) {
	var value *string
	if url != nil {
		if trimmed := strings.TrimSpace(*url); trimmed != "" {
			value = &trimmed
		}
	}
	if err := s.store.Merchants.UpdateWebhookURL(ctx, merchant.ID, value); err != nil {
		return nil, Internal("Failed to update webhook config", err)
	}
	merchant.WebhookURL = value
	cfg := s.GetWebhookConfig(merchant)
	return &cfg, nil
}

func (s *MerchantService) RegenerateWebhookSecret(ctx context.Context, merchant *models.Merchant) (string, error) {
	secret := utils.PrefixWebhookSecret + utils.RandomString(webhookSecretLength)
	if err := s.store.Merchants.UpdateWebhookSecret(ctx, merchant.ID, secret); err != nil {
		return "", Internal("Failed to regenerate webhook secret", err)
	}
	merchant.WebhookSecret = secret
	utils.InfoLogger.WithField("merchant_id", merchant.ID).Info("Webhook secret regenerated")
	return secret, nil
}

// TestMerchant reports the seeded sandbox merchant.
func (s *MerchantService) TestMerchant(ctx context.Context, merchantID string) (*TestMerchantView, error) {
	merchant, err := s.store.Merchants.FindByID(ctx, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Test merchant not found")
	}
	if err != nil {
		return nil, Internal("Failed to load merchant", err)
	}
	return &TestMerchantView{ID: merchant.ID, Email: merchant.Email, APIKey: merchant.APIKey, Seeded: true}, nil
}
