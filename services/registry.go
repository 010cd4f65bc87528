package services

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/yeremiapane/hospital-app/models"
	"gorm.io/gorm"
)

// ErrUnknownType is returned when an event names a type that does not exist
// or has been deactivated.
var ErrUnknownType = errors.New("unknown or inactive notification type")

// TypeRegistry is the catalog of notification categories. Entries change
// rarely, so lookups are served from a short-lived cache in front of the DB.
type TypeRegistry struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func NewTypeRegistry(db *gorm.DB) *TypeRegistry {
	return &TypeRegistry{
		db:    db,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Resolve returns the active type with the given name
func (r *TypeRegistry) Resolve(name string) (*models.NotificationType, error) {
	if cached, found := r.cache.Get(name); found {
		ntype := cached.(models.NotificationType)
		return &ntype, nil
	}

	var ntype models.NotificationType
	err := r.db.Where("name = ? AND is_active = ?", name, true).First(&ntype).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownType
		}
		return nil, err
	}

	r.cache.Set(name, ntype, gocache.DefaultExpiration)
	return &ntype, nil
}

// List returns all catalog entries, active or not
func (r *TypeRegistry) List() ([]models.NotificationType, error) {
	var types []models.NotificationType
	err := r.db.Order("name ASC").Find(&types).Error
	return types, err
}

// Create adds a new catalog entry and invalidates any stale cache slot
func (r *TypeRegistry) Create(ntype *models.NotificationType) error {
	if ntype.Priority == "" {
		ntype.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(ntype.Priority) {
		return errors.New("invalid priority tier")
	}
	if err := r.db.Create(ntype).Error; err != nil {
		return err
	}
	r.cache.Delete(ntype.Name)
	return nil
}

// Invalidate drops one cached entry, e.g. after an update or deactivation
func (r *TypeRegistry) Invalidate(name string) {
	r.cache.Delete(name)
}
