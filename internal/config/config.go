/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config holds the user-editable application configuration,
// persisted as YAML in the user scope. Environment variables act as
// read-only overrides at runtime; the upload token never touches the file
// and lives in the OS keyring instead.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// EngineConfig are the recognized cropping-engine options.
type EngineConfig struct {
	// OutputSizePixels is the square output side length (64..4096).
	OutputSizePixels int `yaml:"output_size_pixels"`
	// QualityMultiplier is the oversampling requirement (1.0..4.0).
	QualityMultiplier float64 `yaml:"quality_multiplier"`
	// MaxZoomMultiplier caps zoom relative to the cover scale.
	MaxZoomMultiplier float64 `yaml:"max_zoom_multiplier"`
	// MaskDiameterFraction is the mask diameter relative to the shorter
	// viewport side; resolved to points by the layout code.
	MaskDiameterFraction float64 `yaml:"mask_diameter_fraction"`
	// AllowRotation is reserved and must stay false; no rotation math is
	// implemented.
	AllowRotation bool `yaml:"allow_rotation"`
	// Encoding is "lossless" (PNG) or "lossy" (JPEG).
	Encoding string `yaml:"encoding"`
	// JPEGQuality is in [0,1], used for lossy encoding only.
	JPEGQuality float64 `yaml:"jpeg_quality"`
}

type GeneralConfig struct {
	ShowGrid bool   `yaml:"show_grid"`
	Theme    string `yaml:"theme"` // "system" | "light" | "dark"
}

type UploadConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Engine        EngineConfig  `yaml:"engine"`
	Upload        UploadConfig  `yaml:"upload"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{ShowGrid: true, Theme: "system"},
		Engine: EngineConfig{
			OutputSizePixels:     512,
			QualityMultiplier:    1.25,
			MaxZoomMultiplier:    4.0,
			MaskDiameterFraction: 0.82,
			AllowRotation:        false,
			Encoding:             "lossless",
			JPEGQuality:          0.9,
		},
		Upload:  UploadConfig{BaseURL: "", TimeoutMs: 15000},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvOutputSize    = "AVC_OUTPUT_SIZE"
	EnvQualityMult   = "AVC_QUALITY_MULTIPLIER"
	EnvMaxZoom       = "AVC_MAX_ZOOM"
	EnvMaskFraction  = "AVC_MASK_FRACTION"
	EnvEncoding      = "AVC_ENCODING"
	EnvJPEGQuality   = "AVC_JPEG_QUALITY"
	EnvUploadURL     = "AVC_UPLOAD_URL"
	EnvUploadTimeout = "AVC_UPLOAD_TIMEOUT_MS"
	EnvLogLevel      = "AVC_LOG_LEVEL"
	EnvLogFormat     = "AVC_LOG_FORMAT"
	EnvLogSource     = "AVC_LOG_SOURCE"
	EnvLogFile       = "AVC_LOG_FILE"
)

// Service/key for the OS keyring.
const (
	keyringService = "AvatarCrop"
	keyringToken   = "upload_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "AvatarCrop")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "AvatarCrop")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "avatarcrop")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, merges
// environment overrides, and clamps engine values into their valid ranges.
// The upload token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg fileConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	Clamp(&cfg.Engine)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects configurations the engine cannot honor.
func Validate(cfg AppConfig) error {
	if cfg.Engine.AllowRotation {
		return errors.New("allow_rotation is reserved and not implemented")
	}
	switch strings.ToLower(cfg.Engine.Encoding) {
	case "lossless", "lossy":
	default:
		return fmt.Errorf("unknown encoding %q", cfg.Engine.Encoding)
	}
	return nil
}

// Clamp forces engine values into their documented ranges.
func Clamp(e *EngineConfig) {
	e.OutputSizePixels = clampInt(e.OutputSizePixels, 64, 4096)
	e.QualityMultiplier = clampFloat(e.QualityMultiplier, 1.0, 4.0)
	if e.MaxZoomMultiplier < 1 {
		e.MaxZoomMultiplier = 1
	}
	e.MaskDiameterFraction = clampFloat(e.MaskDiameterFraction, 0.1, 1.0)
	e.JPEGQuality = clampFloat(e.JPEGQuality, 0, 1)
}

// fileConfig mirrors AppConfig for unmarshalling the user file. Booleans
// whose default is true use pointers here: a plain bool cannot distinguish
// "omitted" from "false", and merging the zero value would silently flip the
// default off in files that leave the key out.
type fileConfig struct {
	ConfigVersion int `yaml:"config_version"`
	General       struct {
		ShowGrid *bool  `yaml:"show_grid"`
		Theme    string `yaml:"theme"`
	} `yaml:"general"`
	Engine EngineConfig `yaml:"engine"`
	Upload UploadConfig `yaml:"upload"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Source *bool  `yaml:"source"`
		File   string `yaml:"file"`
	} `yaml:"logging"`
}

func mergeInto(dst *AppConfig, src *fileConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if src.General.ShowGrid != nil {
		dst.General.ShowGrid = *src.General.ShowGrid
	}

	if src.Engine.OutputSizePixels != 0 {
		dst.Engine.OutputSizePixels = src.Engine.OutputSizePixels
	}
	if src.Engine.QualityMultiplier != 0 {
		dst.Engine.QualityMultiplier = src.Engine.QualityMultiplier
	}
	if src.Engine.MaxZoomMultiplier != 0 {
		dst.Engine.MaxZoomMultiplier = src.Engine.MaxZoomMultiplier
	}
	if src.Engine.MaskDiameterFraction != 0 {
		dst.Engine.MaskDiameterFraction = src.Engine.MaskDiameterFraction
	}
	dst.Engine.AllowRotation = src.Engine.AllowRotation
	if strings.TrimSpace(src.Engine.Encoding) != "" {
		dst.Engine.Encoding = strings.ToLower(strings.TrimSpace(src.Engine.Encoding))
	}
	if src.Engine.JPEGQuality != 0 {
		dst.Engine.JPEGQuality = src.Engine.JPEGQuality
	}

	if src.Upload.BaseURL != "" {
		dst.Upload.BaseURL = src.Upload.BaseURL
	}
	if src.Upload.TimeoutMs != 0 {
		dst.Upload.TimeoutMs = src.Upload.TimeoutMs
	}

	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	if src.Logging.Source != nil {
		dst.Logging.Source = *src.Logging.Source
	}
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvOutputSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.OutputSizePixels = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvQualityMult)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.QualityMultiplier = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxZoom)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.MaxZoomMultiplier = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaskFraction)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.MaskDiameterFraction = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvEncoding)); v != "" {
		cfg.Engine.Encoding = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJPEGQuality)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.JPEGQuality = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadURL)); v != "" {
		cfg.Upload.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upload.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
