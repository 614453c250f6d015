package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type settingRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

// Setting keys.
const (
	SettingSiteName         = "site_name"
	SettingSiteDescription  = "site_description"
	SettingDefaultLanguage  = "default_language"
	SettingArticlesPerPage  = "articles_per_page"
	SettingAutoPublishFeeds = "auto_publish_feed_items"
	SettingFeedMaxItems     = "feed_max_items"
)

// PublicSettingsKey caches the public settings payload.
const PublicSettingsKey = "public:settings"

type allowedSetting struct {
	Key         string
	Type        models.SettingType
	Description string
	Default     string
	Public      bool
	Min, Max    int
}

var allowedSettingKeys = []string{
	SettingSiteName,
	SettingSiteDescription,
	SettingDefaultLanguage,
	SettingArticlesPerPage,
	SettingAutoPublishFeeds,
	SettingFeedMaxItems,
}

var allowedSettings = map[string]allowedSetting{
	SettingSiteName: {
		Key:         SettingSiteName,
		Type:        models.SettingTypeString,
		Description: "Site name shown in page headers",
		Default:     "Newsroom",
		Public:      true,
		Max:         120,
	},
	SettingSiteDescription: {
		Key:         SettingSiteDescription,
		Type:        models.SettingTypeString,
		Description: "Short tagline used in page metadata",
		Public:      true,
		Max:         300,
	},
	SettingDefaultLanguage: {
		Key:         SettingDefaultLanguage,
		Type:        models.SettingTypeString,
		Description: "Language preselected on the reader pages",
		Default:     "en",
		Public:      true,
		Min:         2,
		Max:         8,
	},
	SettingArticlesPerPage: {
		Key:         SettingArticlesPerPage,
		Type:        models.SettingTypeInteger,
		Description: "Articles per page on the reader pages",
		Default:     "20",
		Public:      true,
		Min:         1,
		Max:         models.MaxPageLimit,
	},
	SettingAutoPublishFeeds: {
		Key:         SettingAutoPublishFeeds,
		Type:        models.SettingTypeBoolean,
		Description: "Publish feed items immediately instead of storing drafts",
		Default:     "false",
	},
	SettingFeedMaxItems: {
		Key:         SettingFeedMaxItems,
		Type:        models.SettingTypeInteger,
		Description: "Maximum items taken from one feed fetch",
		Default:     "50",
		Min:         1,
		Max:         500,
	},
}

// SettingService manages site settings restricted to a fixed allow-list.
type SettingService struct {
	repo      settingRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingService constructs a SettingService.
func NewSettingService(repo settingRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SettingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every allowed setting, falling back to defaults for unset keys.
func (s *SettingService) List(ctx context.Context) ([]dto.SettingItem, error) {
	rows, err := s.repo.ListByKeys(ctx, allowedKeys())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	existing := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]dto.SettingItem, 0, len(allowedSettingKeys))
	for _, key := range allowedSettingKeys {
		var row *models.Setting
		if r, ok := existing[key]; ok {
			row = &r
		}
		items = append(items, settingItem(allowedSettings[key], row))
	}
	return items, nil
}

// Public returns the settings readers may see, keyed by name.
func (s *SettingService) Public(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if hit, _ := s.cache.Get(ctx, PublicSettingsKey, &out); hit {
		return out, nil
	}
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Public {
			out[item.Key] = item.Value
		}
	}
	_ = s.cache.Set(ctx, PublicSettingsKey, out, 0)
	return out, nil
}

// Get retrieves a single setting.
func (s *SettingService) Get(ctx context.Context, key string) (*dto.SettingItem, error) {
	meta, err := requireAllowedSetting(key)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			item := settingItem(meta, nil)
			return &item, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get setting")
	}
	item := settingItem(meta, row)
	return &item, nil
}

// Update validates and stores a single setting.
func (s *SettingService) Update(ctx context.Context, key, value string, actorID string) (*dto.SettingItem, error) {
	meta, err := requireAllowedSetting(key)
	if err != nil {
		return nil, err
	}
	value, err = normalizeSettingValue(meta, value)
	if err != nil {
		return nil, err
	}
	setting := &models.Setting{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: optional(meta.Description),
		UpdatedBy:   optional(actorID),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}
	s.invalidate(ctx)
	item := settingItem(meta, setting)
	return &item, nil
}

// BulkUpdate validates every item before writing any of them.
func (s *SettingService) BulkUpdate(ctx context.Context, req dto.BulkUpdateSettingsRequest, actorID string) ([]dto.SettingItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}

	toUpsert := make([]models.Setting, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		meta, err := requireAllowedSetting(item.Key)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[item.Key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("setting %s listed twice", item.Key))
		}
		seen[item.Key] = struct{}{}
		value, err := normalizeSettingValue(meta, item.Value)
		if err != nil {
			return nil, err
		}
		toUpsert = append(toUpsert, models.Setting{
			Key:         item.Key,
			Value:       value,
			Type:        meta.Type,
			Description: optional(meta.Description),
			UpdatedBy:   optional(actorID),
		})
	}

	if err := s.repo.BulkUpsert(ctx, toUpsert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk update settings")
	}
	s.invalidate(ctx)

	result := make([]dto.SettingItem, 0, len(toUpsert))
	for i := range toUpsert {
		result = append(result, settingItem(allowedSettings[toUpsert[i].Key], &toUpsert[i]))
	}
	return result, nil
}

// Bool returns a boolean setting, using its default when unset or unreadable.
func (s *SettingService) Bool(ctx context.Context, key string) bool {
	value := s.valueOrDefault(ctx, key)
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return parsed
}

// Int returns an integer setting, using its default when unset or unreadable.
func (s *SettingService) Int(ctx context.Context, key string) int {
	value := s.valueOrDefault(ctx, key)
	parsed, err := strconv.Atoi(value)
	if err != nil {
		parsed, _ = strconv.Atoi(allowedSettings[key].Default)
	}
	return parsed
}

func (s *SettingService) valueOrDefault(ctx context.Context, key string) string {
	meta := allowedSettings[key]
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to read setting, using default", zap.String("key", key), zap.Error(err))
		}
		return meta.Default
	}
	return row.Value
}

func (s *SettingService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, PublicSettingsKey); err != nil {
		s.logger.Warn("failed to invalidate settings cache", zap.Error(err))
	}
}

func requireAllowedSetting(key string) (allowedSetting, error) {
	meta, ok := allowedSettings[key]
	if !ok {
		return allowedSetting{}, appErrors.Clone(appErrors.ErrValidation, "unsupported setting key")
	}
	return meta, nil
}

func normalizeSettingValue(meta allowedSetting, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case models.SettingTypeBoolean:
		switch strings.ToLower(value) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects boolean value", meta.Key))
	case models.SettingTypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects integer value", meta.Key))
		}
		if (meta.Min != 0 && n < meta.Min) || (meta.Max != 0 && n > meta.Max) {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be between %d and %d", meta.Key, meta.Min, meta.Max))
		}
		return strconv.Itoa(n), nil
	case models.SettingTypeString:
		length := len([]rune(value))
		if (meta.Min != 0 && length < meta.Min) || (meta.Max != 0 && length > meta.Max) {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s length must be between %d and %d", meta.Key, meta.Min, meta.Max))
		}
		return value, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported setting type")
	}
}

func settingItem(meta allowedSetting, row *models.Setting) dto.SettingItem {
	item := dto.SettingItem{
		Key:         meta.Key,
		Value:       meta.Default,
		Type:        string(meta.Type),
		Description: meta.Description,
		Public:      meta.Public,
	}
	if row != nil {
		item.Value = row.Value
		if row.Description != nil && *row.Description != "" {
			item.Description = *row.Description
		}
	}
	return item
}

func allowedKeys() []string {
	keys := make([]string, len(allowedSettingKeys))
	copy(keys, allowedSettingKeys)
	return keys
}
