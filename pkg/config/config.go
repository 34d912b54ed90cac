// Package config is the settings store: a viper-backed YAML file with
// KINDLIZE_ environment overrides, and the SMTP password kept in the OS
// keyring when one is available.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "kindlize"
	keyringUser    = "smtp-password"
)

// Setting keys.
const (
	KeyLibraryRoot         = "library_root"
	KeyEmail               = "email"
	KeySMTPHost            = "smtp.host"
	KeySMTPPort            = "smtp.port"
	KeySMTPUsername        = "smtp.username"
	KeySMTPPassword        = "smtp.password"
	KeyServiceBaseURL      = "service.base_url"
	KeyServiceRetries      = "service.retries"
	KeyServiceRetryWait    = "service.retry_wait"
	KeyServiceTimeout      = "service.timeout"
	KeyServiceMaxPolls     = "service.max_polls"
	KeyServicePollInterval = "service.poll_interval"
	KeyServiceRateLimit    = "service.rate_limit"
	KeySourceCharset       = "source_charset"
	KeyDevice              = "device"
	KeyHistoryDB           = "history_db"
)

var ErrNoLibraryRoot = errors.New("library root is not configured")

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

type ServiceSettings struct {
	BaseURL      string
	Retries      int
	RetryWait    time.Duration
	Timeout      time.Duration
	MaxPolls     int
	PollInterval time.Duration
	RateLimit    float64 // requests per second, 0 disables
}

// Settings is a point-in-time snapshot of the store.
type Settings struct {
	LibraryRoot   string
	Email         string
	SMTP          SMTPSettings
	Service       ServiceSettings
	SourceCharset string
	Device        string
	HistoryDB     string
}

// MailConfigured reports whether converted files should be emailed.
func (s Settings) MailConfigured() bool {
	return s.Email != "" && s.SMTP.Username != "" && s.SMTP.Password != ""
}

func (s Settings) RequireLibraryRoot() error {
	if s.LibraryRoot == "" {
		return ErrNoLibraryRoot
	}
	return nil
}

// SetDefaults registers defaults and the key aliases written by older
// releases of the desktop app.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySMTPHost, "in-v3.mailjet.com")
	v.SetDefault(KeySMTPPort, 587)
	v.SetDefault(KeyServiceBaseURL, "http://ebook.cdict.info/mobi/")
	v.SetDefault(KeyServiceRetries, 3)
	v.SetDefault(KeyServiceRetryWait, 2*time.Second)
	v.SetDefault(KeyServiceTimeout, 60*time.Second)
	v.SetDefault(KeyServiceMaxPolls, 30)
	v.SetDefault(KeyServicePollInterval, 2*time.Second)
	v.SetDefault(KeyServiceRateLimit, 2.0)
	v.SetDefault(KeySourceCharset, "utf-8")
	v.SetDefault(KeyDevice, "kindle-paperwhite3")

	if home, err := os.UserHomeDir(); err == nil {
		v.SetDefault(KeyHistoryDB, filepath.Join(home, ".kindlize", "history.db"))
	} else {
		v.SetDefault(KeyHistoryDB, "kindlize.db")
	}

	v.RegisterAlias("path2Dropbox", KeyLibraryRoot)
	v.RegisterAlias("SMTPUsername", KeySMTPUsername)
	v.RegisterAlias("SMTPPassword", KeySMTPPassword)
}

// Init wires v to its config file, .env and the environment. cfgFile
// overrides the search path. A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("kindlize")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("KINDLIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// DefaultDir is ~/.config/kindlize.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kindlize"), nil
}

type Store struct {
	v *viper.Viper
}

func NewStore(v *viper.Viper) *Store {
	return &Store{v: v}
}

// Settings reads the current values. The keyring wins over the config
// file for the SMTP password.
func (s *Store) Settings() Settings {
	v := s.v
	password := v.GetString(KeySMTPPassword)
	if secret, err := keyring.Get(keyringService, keyringUser); err == nil && secret != "" {
		password = secret
	}

	return Settings{
		LibraryRoot: strings.TrimSpace(v.GetString(KeyLibraryRoot)),
		Email:       strings.TrimSpace(v.GetString(KeyEmail)),
		SMTP: SMTPSettings{
			Host:     v.GetString(KeySMTPHost),
			Port:     v.GetInt(KeySMTPPort),
			Username: v.GetString(KeySMTPUsername),
			Password: password,
		},
		Service: ServiceSettings{
			BaseURL:      v.GetString(KeyServiceBaseURL),
			Retries:      v.GetInt(KeyServiceRetries),
			RetryWait:    v.GetDuration(KeyServiceRetryWait),
			Timeout:      v.GetDuration(KeyServiceTimeout),
			MaxPolls:     v.GetInt(KeyServiceMaxPolls),
			PollInterval: v.GetDuration(KeyServicePollInterval),
			RateLimit:    v.GetFloat64(KeyServiceRateLimit),
		},
		SourceCharset: v.GetString(KeySourceCharset),
		Device:        v.GetString(KeyDevice),
		HistoryDB:     v.GetString(KeyHistoryDB),
	}
}

// Set updates one key in memory. The SMTP password goes to the keyring;
// if no keyring is reachable it falls back to the config file.
func (s *Store) Set(key, value string) error {
	if strings.EqualFold(key, KeySMTPPassword) || strings.EqualFold(key, "SMTPPassword") {
		err := keyring.Set(keyringService, keyringUser, value)
		if err == nil {
			s.v.Set(KeySMTPPassword, "")
			return nil
		}
		log.Printf("Warning: keyring unavailable, storing SMTP password in config file: %v", err)
	}
	s.v.Set(key, value)
	return nil
}

// Update applies a batch of values, as submitted by the settings form,
// and saves.
func (s *Store) Update(values map[string]string) error {
	for k, val := range values {
		if err := s.Set(k, val); err != nil {
			return err
		}
	}
	return s.Save()
}

// Save writes the store to the file it was read from, or to the default
// location when none was read.
func (s *Store) Save() error {
	path := s.v.ConfigFileUsed()
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return fmt.Errorf("failed to locate config directory: %w", err)
		}
		path = filepath.Join(dir, "kindlize.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	s.v.SetConfigFile(path)
	return nil
}

// Keys lists the settings shown by the settings screen and command, in
// display order.
func Keys() []string {
	return []string{
		KeyLibraryRoot,
		KeySMTPUsername,
		KeySMTPPassword,
		KeyEmail,
		KeySMTPHost,
		KeySMTPPort,
		KeyServiceBaseURL,
		KeySourceCharset,
		KeyDevice,
		KeyHistoryDB,
	}
}

// Display returns the value of key for humans, masking the password.
func (s *Store) Display(key string) string {
	settings := s.Settings()
	switch key {
	case KeySMTPPassword:
		if settings.SMTP.Password == "" {
			return ""
		}
		return "********"
	default:
		return s.v.GetString(key)
	}
}
