package ecommerce

import (
	"errors"
	"strings"
	"time"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
)

// HepsiburadaConfig holds configuration for the Hepsiburada merchant API
type HepsiburadaConfig struct {
	// APIBaseURL is the base URL of the merchant API (production or SIT)
	APIBaseURL string
	// Username is the API user issued to the merchant
	Username string
	// Password is the API password issued to the merchant
	Password string
	// MerchantID is the merchant identifier used as a path segment
	MerchantID string
	// IsSandbox selects the SIT environment when APIBaseURL is empty
	IsSandbox bool
	// Timeout bounds a single HTTP round trip
	Timeout time.Duration
}

const (
	// HepsiburadaProductionAPIURL is the production API endpoint
	HepsiburadaProductionAPIURL = "https://mpop.hepsiburada.com/api"
	// HepsiburadaSandboxAPIURL is the SIT (sandbox) API endpoint
	HepsiburadaSandboxAPIURL = "https://mpop-sit.hepsiburada.com/api"

	defaultHepsiburadaTimeout = 30 * time.Second
)

// Errors for Hepsiburada configuration
var (
	ErrHepsiburadaConfigMissingUsername   = errors.New("hepsiburada: api username is required")
	ErrHepsiburadaConfigMissingPassword   = errors.New("hepsiburada: api password is required")
	ErrHepsiburadaConfigMissingMerchantID = errors.New("hepsiburada: merchant id is required")
)

// NewHepsiburadaConfig builds an adapter configuration from a marketplace section
func NewHepsiburadaConfig(m config.MarketplaceConfig) *HepsiburadaConfig {
	return &HepsiburadaConfig{
		APIBaseURL: m.APIBaseURL,
		Username:   m.APIUsername,
		Password:   m.APIPassword,
		MerchantID: m.MerchantID,
		Timeout:    m.RequestTimeout,
	}
}

// Validate validates the configuration and fills in defaults
func (c *HepsiburadaConfig) Validate() error {
	if c.Username == "" {
		return ErrHepsiburadaConfigMissingUsername
	}
	if c.Password == "" {
		return ErrHepsiburadaConfigMissingPassword
	}
	if c.MerchantID == "" {
		return ErrHepsiburadaConfigMissingMerchantID
	}
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = HepsiburadaSandboxAPIURL
		} else {
			c.APIBaseURL = HepsiburadaProductionAPIURL
		}
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultHepsiburadaTimeout
	}
	return nil
}
