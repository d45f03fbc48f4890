package users

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"el-estate-bot/internal/infra/kv"

	"github.com/go-faster/errors"
)

// ProfileTTL — срок хранения персональных настроек.
const ProfileTTL = 30 * 24 * time.Hour

// DefaultCrop — обрезка снизу по умолчанию, в процентах.
const DefaultCrop = 15

// CropOptions — допустимые значения обрезки, в порядке кнопок.
var CropOptions = []int{0, 5, 10, 15}

// ValidCrop проверяет, что значение входит в CropOptions.
func ValidCrop(v int) bool {
	return slices.Contains(CropOptions, v)
}

// Profile — персональные данные пользователя. Формат JSON совместим с уже
// сохранёнными записями, поэтому имена полей менять нельзя.
type Profile struct {
	CropPercentage    *int   `json:"crop_percentage,omitempty"`
	LastURL           string `json:"last_url,omitempty"`
	LastImagesCount   int    `json:"last_images_count,omitempty"`
	LastProcessedTime int64  `json:"last_processed_time,omitempty"`
}

// Crop возвращает выбранную обрезку или DefaultCrop.
func (p Profile) Crop() int {
	if p.CropPercentage == nil {
		return DefaultCrop
	}
	return *p.CropPercentage
}

// WithCrop возвращает копию профиля с новой обрезкой.
func (p Profile) WithCrop(v int) Profile {
	p.CropPercentage = &v
	return p
}

func profileKey(uid int64) string {
	return "el_estate_bot:user:" + strconv.FormatInt(uid, 10)
}

// Profiles читает и пишет Profile в хранилище.
type Profiles struct {
	store kv.Store
}

// NewProfiles создаёт хранилище профилей.
func NewProfiles(store kv.Store) *Profiles {
	return &Profiles{store: store}
}

// Get возвращает профиль; отсутствующий профиль — пустой, без ошибки.
// Повреждённый JSON тоже даёт пустой профиль, чтобы пользователь мог продолжить работу.
func (p *Profiles) Get(ctx context.Context, uid int64) (Profile, error) {
	raw, err := p.store.Get(ctx, profileKey(uid))
	if errors.Is(err, kv.ErrNotFound) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, errors.Wrapf(err, "get profile %d", uid)
	}
	var prof Profile
	if err := json.Unmarshal([]byte(raw), &prof); err != nil {
		return Profile{}, nil
	}
	return prof, nil
}

// Save перезаписывает профиль и продлевает его TTL.
func (p *Profiles) Save(ctx context.Context, uid int64, prof Profile) error {
	raw, err := json.Marshal(prof)
	if err != nil {
		return errors.Wrap(err, "encode profile")
	}
	if err := p.store.Set(ctx, profileKey(uid), string(raw), ProfileTTL); err != nil {
		return errors.Wrapf(err, "save profile %d", uid)
	}
	return nil
}

// SetCrop меняет только обрезку. Недопустимое значение отклоняется.
func (p *Profiles) SetCrop(ctx context.Context, uid int64, crop int) error {
	if !ValidCrop(crop) {
		return errors.Errorf("crop %d is not allowed", crop)
	}
	prof, err := p.Get(ctx, uid)
	if err != nil {
		return err
	}
	return p.Save(ctx, uid, prof.WithCrop(crop))
}

// RecordRun сохраняет итог успешной обработки ссылки.
func (p *Profiles) RecordRun(ctx context.Context, uid int64, url string, count, crop int, at time.Time) error {
	prof, err := p.Get(ctx, uid)
	if err != nil {
		return err
	}
	prof = prof.WithCrop(crop)
	prof.LastURL = url
	prof.LastImagesCount = count
	prof.LastProcessedTime = at.Unix()
	return p.Save(ctx, uid, prof)
}
