package templates

import (
	"time"

	"github.com/oksasatya/flowery-users/config"
)

// Option pattern
type Option func(*EmailData)

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

func WithInactiveDays(days int) Option { return func(d *EmailData) { d.InactiveDays = days } }

// NewBaseEmailData fills the common fields from config, then applies opts
func NewBaseEmailData(cfg *config.Config, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:  name,
		Email: email,
		Type:  typ,
	}
	if cfg != nil {
		d.AppName = cfg.AppName
		d.CompanyName = cfg.CompanyName
		d.CompanyAddress = cfg.CompanyAddress
		d.SupportURL = cfg.SupportURL
		d.RegisterURL = cfg.AppURL + "/register"
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewPasswordResetData(cfg *config.Config, name, email, resetURL string, expiresAt time.Time) EmailData {
	return NewBaseEmailData(cfg, PasswordReset, name, email, WithResetURL(resetURL), WithExpiresAt(expiresAt))
}

func NewAccountDeletedData(cfg *config.Config, name, email string, inactiveDays int) EmailData {
	return NewBaseEmailData(cfg, AccountDeleted, name, email, WithInactiveDays(inactiveDays))
}
